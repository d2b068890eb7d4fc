package identity

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Patch(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// AccountsService is the operation surface the HTTP controller drives.
type AccountsService interface {
	Register(ctx context.Context, email, password string) (*User, error)
	Login(ctx context.Context, email, password string) (string, error)
	Self(ctx context.Context, rawToken string) (*Principal, error)
	UpdateEmail(ctx context.Context, rawToken, newEmail string) (*User, error)
	ChangePassword(ctx context.Context, rawToken, currentPassword, newPassword string) error
	ListUsers(ctx context.Context, rawToken string) ([]*User, error)
	SetRole(ctx context.Context, rawToken string, targetID uuid.UUID, role UserRole) (*User, error)
	SetActive(ctx context.Context, rawToken string, targetID uuid.UUID, active bool) (*User, error)
}

var _ AccountsService = (*Accounts)(nil)

// HTTPController exposes the account operations as a JSON API.
type HTTPController struct {
	accounts AccountsService
	logger   Logger
	Debug    bool
}

// NewHTTPController creates a new HTTP controller.
func NewHTTPController(accounts AccountsService) *HTTPController {
	return &HTTPController{
		accounts: accounts,
		logger:   defLogger{},
	}
}

func (c *HTTPController) WithLogger(logger Logger) *HTTPController {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// RegisterRoutes registers the account routes.
func (c *HTTPController) RegisterRoutes(group RouteRegistrar) {
	group.Get("/health", c.Health)
	group.Post("/auth/register", c.RegisterPost)
	group.Post("/auth/login", c.LoginPost)
	group.Get("/users/me", c.MeShow)
	group.Patch("/users/me", c.MeUpdate)
	group.Post("/users/change-password", c.ChangePassword)
	group.Get("/admin/users", c.AdminUsersIndex)
	group.Patch("/admin/users/:id/role", c.AdminSetRole)
	group.Patch("/admin/users/:id/disable", c.AdminSetActive)
}

// UserResponse is the public projection of a directory record.
type UserResponse struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Role     UserRole  `json:"role"`
	IsActive bool      `json:"is_active"`
}

// NewUserResponse builds the public projection from a record.
func NewUserResponse(user *User) UserResponse {
	return UserResponse{
		ID:       user.ID,
		Email:    user.Email,
		Role:     user.Role,
		IsActive: user.Active,
	}
}

// RegisterRequest payload
type RegisterRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
			validation.Length(8, 128),
		),
	)
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

// UpdateMeRequest payload. Email is optional; leaving it empty makes the
// update a no-op that returns the current record.
type UpdateMeRequest struct {
	Email string `form:"email" json:"email"`
}

// Validate will run validation rules
func (r UpdateMeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			is.Email,
		),
	)
}

// ChangePasswordRequest payload
type ChangePasswordRequest struct {
	CurrentPassword string `form:"current_password" json:"current_password"`
	NewPassword     string `form:"new_password" json:"new_password"`
}

// Validate will run validation rules
func (r ChangePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.CurrentPassword,
			validation.Required,
		),
		validation.Field(
			&r.NewPassword,
			validation.Required,
			validation.Length(8, 128),
		),
	)
}

// SetRoleRequest payload
type SetRoleRequest struct {
	Role string `form:"role" json:"role"`
}

// Validate will run validation rules
func (r SetRoleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Role,
			validation.Required,
			validation.In(RoleUser, RoleAdmin),
		),
	)
}

// SetActiveRequest payload
type SetActiveRequest struct {
	IsActive *bool `form:"is_active" json:"is_active"`
}

// Validate will run validation rules
func (r SetActiveRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.IsActive,
			validation.NotNil,
		),
	)
}

// Health reports process liveness.
func (c *HTTPController) Health(ctx router.Context) error {
	return ctx.JSON(router.StatusOK, map[string]string{
		"status": "ok",
	})
}

// RegisterPost creates a new account.
func (c *HTTPController) RegisterPost(ctx router.Context) error {
	payload := new(RegisterRequest)
	if err := ctx.Bind(payload); err != nil {
		return c.handleError(ctx, errors.Wrap(err, errors.CategoryBadInput, "unable to parse registration payload"))
	}

	if err := payload.Validate(); err != nil {
		return c.validationError(ctx, err)
	}

	user, err := c.accounts.Register(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, NewUserResponse(user))
}

// LoginPost verifies credentials and returns a bearer token.
func (c *HTTPController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)
	if err := ctx.Bind(payload); err != nil {
		return c.handleError(ctx, errors.Wrap(err, errors.CategoryBadInput, "unable to parse login payload"))
	}

	if err := payload.Validate(); err != nil {
		return c.validationError(ctx, err)
	}

	token, err := c.accounts.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

// MeShow returns the caller's principal.
func (c *HTTPController) MeShow(ctx router.Context) error {
	principal, err := c.accounts.Self(ctx.Context(), bearerToken(ctx))
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, principal)
}

// MeUpdate changes the caller's email.
func (c *HTTPController) MeUpdate(ctx router.Context) error {
	payload := new(UpdateMeRequest)
	if err := ctx.Bind(payload); err != nil {
		return c.handleError(ctx, errors.Wrap(err, errors.CategoryBadInput, "unable to parse profile payload"))
	}

	if err := payload.Validate(); err != nil {
		return c.validationError(ctx, err)
	}

	user, err := c.accounts.UpdateEmail(ctx.Context(), bearerToken(ctx), payload.Email)
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, NewUserResponse(user))
}

// ChangePassword replaces the caller's password.
func (c *HTTPController) ChangePassword(ctx router.Context) error {
	payload := new(ChangePasswordRequest)
	if err := ctx.Bind(payload); err != nil {
		return c.handleError(ctx, errors.Wrap(err, errors.CategoryBadInput, "unable to parse password payload"))
	}

	if err := payload.Validate(); err != nil {
		return c.validationError(ctx, err)
	}

	if err := c.accounts.ChangePassword(ctx.Context(), bearerToken(ctx), payload.CurrentPassword, payload.NewPassword); err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"status": "ok",
	})
}

// AdminUsersIndex lists every account. Admin only.
func (c *HTTPController) AdminUsersIndex(ctx router.Context) error {
	records, err := c.accounts.ListUsers(ctx.Context(), bearerToken(ctx))
	if err != nil {
		return c.handleError(ctx, err)
	}

	response := make([]UserResponse, 0, len(records))
	for _, user := range records {
		response = append(response, NewUserResponse(user))
	}

	return ctx.JSON(router.StatusOK, response)
}

// AdminSetRole changes the target account's role. Admin only.
func (c *HTTPController) AdminSetRole(ctx router.Context) error {
	targetID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.handleError(ctx, ErrUserNotFound)
	}

	payload := new(SetRoleRequest)
	if err := ctx.Bind(payload); err != nil {
		return c.handleError(ctx, errors.Wrap(err, errors.CategoryBadInput, "unable to parse role payload"))
	}

	if err := payload.Validate(); err != nil {
		return c.validationError(ctx, err)
	}

	user, err := c.accounts.SetRole(ctx.Context(), bearerToken(ctx), targetID, payload.Role)
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"status":  "ok",
		"user_id": user.ID,
		"role":    user.Role,
	})
}

// AdminSetActive flips the target account's activation flag. Admin only.
func (c *HTTPController) AdminSetActive(ctx router.Context) error {
	targetID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.handleError(ctx, ErrUserNotFound)
	}

	payload := new(SetActiveRequest)
	if err := ctx.Bind(payload); err != nil {
		return c.handleError(ctx, errors.Wrap(err, errors.CategoryBadInput, "unable to parse activation payload"))
	}

	if err := payload.Validate(); err != nil {
		return c.validationError(ctx, err)
	}

	user, err := c.accounts.SetActive(ctx.Context(), bearerToken(ctx), targetID, *payload.IsActive)
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"status":    "ok",
		"user_id":   user.ID,
		"is_active": user.Active,
	})
}

// bearerToken extracts the raw token from the Authorization header. An
// empty result flows into the Guard, which rejects it as malformed.
func bearerToken(ctx router.Context) string {
	header := ctx.Header("Authorization")
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

func (c *HTTPController) validationError(ctx router.Context, err error) error {
	return ctx.JSON(router.StatusBadRequest, map[string]any{
		"error":      "validation failed",
		"validation": err.Error(),
	})
}

func (c *HTTPController) handleError(ctx router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	if c.Debug {
		c.logger.Debug("request error", "details", print.MaybePrettyJSON(richErr.Metadata))
	}

	status := richErr.Code
	if status <= 0 {
		status = statusFromCategory(richErr.Category)
	}

	if status >= router.StatusInternalServerError {
		c.logger.Error("request failed",
			"error", richErr.Message,
			"category", richErr.Category,
			"text_code", richErr.TextCode,
		)
	}

	return ctx.JSON(status, map[string]string{
		"error":     richErr.Message,
		"text_code": richErr.TextCode,
	})
}

func statusFromCategory(category errors.Category) int {
	switch category {
	case errors.CategoryAuth:
		return router.StatusUnauthorized
	case errors.CategoryAuthz:
		return router.StatusForbidden
	case errors.CategoryNotFound:
		return router.StatusNotFound
	case errors.CategoryConflict, errors.CategoryValidation, errors.CategoryBadInput:
		return router.StatusBadRequest
	default:
		return router.StatusInternalServerError
	}
}
