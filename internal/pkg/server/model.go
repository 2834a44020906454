package server

import "github.com/vittapcode/homeboard/internal/pkg/model"

type ControlRequest struct {
	Action model.DeviceStatus `json:"action"`
	Color  string             `json:"color,omitempty"`
}

type ControlResponse struct {
	Accepted bool `json:"accepted"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type UpdateRoleRequest struct {
	Role model.Role `json:"role"`
}

type UpdatePinRequest struct {
	Pin string `json:"pin"`
}

type UpdateProfileRequest struct {
	Password string `json:"password"`
}

type PushTokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

type UnreadResponse struct {
	Count int `json:"count"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
