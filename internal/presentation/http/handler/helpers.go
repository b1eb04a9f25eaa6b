package handler

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sangkips/pdv-engine/internal/application/service"
	"github.com/sangkips/pdv-engine/internal/presentation/http/dto/response"
	"github.com/sangkips/pdv-engine/internal/presentation/http/middleware"
	"github.com/sangkips/pdv-engine/pkg/apperror"
	"github.com/sangkips/pdv-engine/pkg/utils"
)

// GetCashierID extracts the cashier ID from the Gin context
func GetCashierID(c *gin.Context) *uuid.UUID {
	val, exists := c.Get(middleware.CashierIDKey)
	if !exists {
		return nil
	}
	id, ok := val.(uuid.UUID)
	if !ok {
		return nil
	}
	return &id
}

// GetCashierRoles extracts the cashier roles from the Gin context
func GetCashierRoles(c *gin.Context) []string {
	roles, exists := c.Get(middleware.CashierRolesKey)
	if !exists {
		return nil
	}
	list, _ := roles.([]string)
	return list
}

// IsSupervisor checks if the cashier has the supervisor role
func IsSupervisor(c *gin.Context) bool {
	for _, role := range GetCashierRoles(c) {
		if role == utils.RoleSupervisor {
			return true
		}
	}
	return false
}

// parseUUIDParam reads a UUID path parameter, writing a 400 on failure.
func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}

// bindJSON binds the body, writing a 400 on failure.
func bindJSON(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		response.Error(c, apperror.NewValidationError(fieldErrors(verrs)))
		return false
	}
	response.BadRequest(c, "Invalid request: "+err.Error())
	return false
}

func fieldErrors(verrs validator.ValidationErrors) []apperror.FieldError {
	out := make([]apperror.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		msg := "failed on " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		out = append(out, apperror.FieldError{Field: strings.ToLower(fe.Field()), Message: msg})
	}
	return out
}

// currentSession resolves the session of the terminal in the path. Cashiers
// only reach their own session; supervisors reach any.
func currentSession(c *gin.Context, sessions *service.SessionService) (*service.Session, bool) {
	cashierID := GetCashierID(c)
	if cashierID == nil {
		response.Unauthorized(c, "Cashier not authenticated")
		return nil, false
	}

	terminalID := middleware.GetTerminalID(c)
	var (
		sess *service.Session
		err  error
	)
	if IsSupervisor(c) {
		sess, err = sessions.Get(terminalID)
	} else {
		sess, err = sessions.GetFor(terminalID, *cashierID)
	}
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return sess, true
}
