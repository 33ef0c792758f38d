package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/tradenet/internal/apierr"
	"github.com/suteetoe/tradenet/internal/middleware"
	"github.com/suteetoe/tradenet/internal/model"
	"github.com/suteetoe/tradenet/internal/validation"
	"github.com/suteetoe/tradenet/pkg/database"
	"github.com/suteetoe/tradenet/pkg/logger"
	"github.com/suteetoe/tradenet/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const msgUserEmailTaken = "пользователь с таким Адрес электронной почты уже существует."

// UserCreateRequest defines the structure for sign-up requests
type UserCreateRequest struct {
	Email      string `json:"email" validate:"required,email,max=254"`
	Password   string `json:"password" validate:"required,bcrypt"`
	LastName   string `json:"last_name" validate:"required,max=50"`
	FirstName  string `json:"first_name" validate:"required,max=50"`
	EmployerID *uint  `json:"employer"`
}

// UserUpdateRequest carries the only field staff may change on a user
type UserUpdateRequest struct {
	EmployerID *uint `json:"employer"`
}

// UserResponse is the user representation, without credentials
type UserResponse struct {
	ID         uint   `json:"id"`
	Email      string `json:"email"`
	LastName   string `json:"last_name"`
	FirstName  string `json:"first_name"`
	EmployerID *uint  `json:"employer"`
}

func newUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Email:      u.Email,
		LastName:   u.LastName,
		FirstName:  u.FirstName,
		EmployerID: u.EmployerID,
	}
}

// checkEmployer adds an error when the referenced employer does not exist
func checkEmployer(db *gorm.DB, employerID *uint, errs apierr.FieldErrors) error {
	if employerID == nil {
		return nil
	}
	var count int64
	if err := db.Model(&model.Participant{}).Where("id = ?", *employerID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		errs.Add("employer", invalidPK(*employerID))
	}
	return nil
}

// CreateUser handles sign-up. A participant registered under the same email
// becomes the user's employer and makes the user staff.
func CreateUser(c echo.Context) error {
	log := logger.FromContext(c)
	log.Info("Creating new user")

	var req UserCreateRequest
	errs, err := collectFieldErrors(validation.BindAndValidate(c, &req))
	if err != nil {
		return bindError(c, err)
	}

	db := database.WithContext(c.Request().Context())

	defer prometheus.TrackDBOperation("query")(time.Now())
	if _, invalid := errs["email"]; !invalid {
		var count int64
		if err := db.Model(&model.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
			log.Error("Failed to check user email", zap.Error(err))
			return apierr.Internal(c)
		}
		if count > 0 {
			errs.Add("email", msgUserEmailTaken)
		}
	}
	if err := checkEmployer(db, req.EmployerID, errs); err != nil {
		log.Error("Failed to check employer", zap.Error(err))
		return apierr.Internal(c)
	}
	if len(errs) > 0 {
		return apierr.Invalid(c, errs)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return apierr.Internal(c)
	}

	user := model.User{
		Email:      req.Email,
		Password:   string(hashedPassword),
		LastName:   req.LastName,
		FirstName:  req.FirstName,
		EmployerID: req.EmployerID,
		IsActive:   true,
	}

	var employer model.Participant
	err = db.Where("email = ?", req.Email).First(&employer).Error
	switch {
	case err == nil:
		user.EmployerID = &employer.ID
		user.IsStaff = true
		log.Info("User bound to participant with the same email", zap.Uint("participant_id", employer.ID))
	case !isNotFound(err):
		log.Error("Failed to look up participant by email", zap.Error(err))
		return apierr.Internal(c)
	}

	if err := db.Create(&user).Error; err != nil {
		log.Error("Failed to create user", zap.String("email", req.Email), zap.Error(err))
		return apierr.Internal(c)
	}

	prometheus.RecordOperation("user", "create")
	log.Info("User created successfully",
		zap.Uint("user_id", user.ID),
		zap.Bool("is_staff", user.IsStaff))
	return c.JSON(http.StatusCreated, newUserResponse(&user))
}

// ListUsers handles listing users that share the caller's employer
func ListUsers(c echo.Context) error {
	log := logger.FromContext(c)
	caller := middleware.CurrentUser(c)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var users []model.User
	query := whereRef(database.WithContext(c.Request().Context()), "employer_id", caller.EmployerID)
	if err := query.Order("id").Find(&users).Error; err != nil {
		log.Error("Failed to list users", zap.Error(err))
		return apierr.Internal(c)
	}

	response := make([]UserResponse, 0, len(users))
	for i := range users {
		response = append(response, newUserResponse(&users[i]))
	}

	log.Info("Users retrieved successfully", zap.Int("count", len(response)))
	return c.JSON(http.StatusOK, response)
}

// UpdateUser handles assigning an employer to a user that has none
func UpdateUser(c echo.Context) error {
	log := logger.FromContext(c)

	id, ok := pathID(c)
	if !ok {
		return apierr.NotFound(c, userModel)
	}

	db := database.WithContext(c.Request().Context())

	var user model.User
	if err := db.Where("employer_id IS NULL").First(&user, id).Error; err != nil {
		if isNotFound(err) {
			log.Warn("User is not visible to the caller", zap.Uint("user_id", id))
			return apierr.NotFound(c, userModel)
		}
		log.Error("Failed to load user", zap.Uint("user_id", id), zap.Error(err))
		return apierr.Internal(c)
	}

	req := UserUpdateRequest{EmployerID: user.EmployerID}
	errs, err := collectFieldErrors(validation.BindAndValidate(c, &req))
	if err != nil {
		return bindError(c, err)
	}
	if err := checkEmployer(db, req.EmployerID, errs); err != nil {
		log.Error("Failed to check employer", zap.Error(err))
		return apierr.Internal(c)
	}
	if len(errs) > 0 {
		return apierr.Invalid(c, errs)
	}

	user.EmployerID = req.EmployerID

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := db.Model(&user).Select("employer_id").Updates(&user).Error; err != nil {
		log.Error("Failed to update user", zap.Uint("user_id", id), zap.Error(err))
		return apierr.Internal(c)
	}

	prometheus.RecordOperation("user", "update")
	log.Info("User updated successfully", zap.Uint("user_id", id))
	return c.JSON(http.StatusOK, newUserResponse(&user))
}

// DeleteUser handles deleting a user that shares the caller's employer
func DeleteUser(c echo.Context) error {
	log := logger.FromContext(c)
	caller := middleware.CurrentUser(c)

	id, ok := pathID(c)
	if !ok {
		return apierr.NotFound(c, userModel)
	}

	db := database.WithContext(c.Request().Context())

	defer prometheus.TrackDBOperation("delete")(time.Now())
	var user model.User
	if err := whereRef(db, "employer_id", caller.EmployerID).First(&user, id).Error; err != nil {
		if isNotFound(err) {
			log.Warn("User is not visible to the caller", zap.Uint("user_id", id))
			return apierr.NotFound(c, userModel)
		}
		log.Error("Failed to load user", zap.Uint("user_id", id), zap.Error(err))
		return apierr.Internal(c)
	}

	if err := db.Delete(&user).Error; err != nil {
		log.Error("Failed to delete user", zap.Uint("user_id", id), zap.Error(err))
		return apierr.Internal(c)
	}

	prometheus.RecordOperation("user", "delete")
	log.Info("User deleted successfully", zap.Uint("user_id", id))
	return c.NoContent(http.StatusNoContent)
}
