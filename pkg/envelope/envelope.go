// Package envelope writes the {success, message, data} body shared by every
// endpoint.
package envelope

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Body struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// OK writes a 200 success body.
func OK(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created writes a 201 success body with a message.
func Created(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusCreated, Body{Success: true, Message: message, Data: data})
}

// Success writes a success body with an explicit status and message.
func Success(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, Body{Success: true, Message: message, Data: data})
}

// Fail writes a failure body.
func Fail(c echo.Context, status int, message string) error {
	return c.JSON(status, Body{Success: false, Message: message})
}
