package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/suteetoe/tradenet/internal/apierr"
	"github.com/suteetoe/tradenet/internal/hierarchy"
	"github.com/suteetoe/tradenet/internal/middleware"
	"github.com/suteetoe/tradenet/internal/model"
	"github.com/suteetoe/tradenet/internal/validation"
	"github.com/suteetoe/tradenet/pkg/database"
	"github.com/suteetoe/tradenet/pkg/logger"
	"github.com/suteetoe/tradenet/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const msgParticipantEmailTaken = "участник с таким Адрес электронной почты уже существует."

// ParticipantRequest defines the structure for participant creation/update requests.
// Debt is not accepted from clients.
type ParticipantRequest struct {
	Name       string         `json:"name" validate:"required,max=150"`
	Email      string         `json:"email" validate:"required,email,max=254"`
	Country    string         `json:"country" validate:"required,max=50"`
	City       string         `json:"city" validate:"required,max=50"`
	Street     string         `json:"street" validate:"required,max=50"`
	House      string         `json:"house" validate:"required,max=10"`
	UnitName   model.UnitName `json:"unit_name" validate:"required,unitname"`
	Level      *model.Level   `json:"level" validate:"omitempty,level"`
	SupplierID *uint          `json:"supplier"`
}

func participantRequestFrom(p *model.Participant) ParticipantRequest {
	return ParticipantRequest{
		Name:       p.Name,
		Email:      p.Email,
		Country:    p.Country,
		City:       p.City,
		Street:     p.Street,
		House:      p.House,
		UnitName:   p.UnitName,
		Level:      p.Level,
		SupplierID: p.SupplierID,
	}
}

func (r *ParticipantRequest) apply(p *model.Participant) {
	p.Name = r.Name
	p.Email = r.Email
	p.Country = r.Country
	p.City = r.City
	p.Street = r.Street
	p.House = r.House
	p.UnitName = r.UnitName
	p.Level = r.Level
	p.SupplierID = r.SupplierID
}

// ParticipantCreatedResponse is returned by the create endpoint
type ParticipantCreatedResponse struct {
	ID       uint           `json:"id"`
	Name     string         `json:"name"`
	Email    string         `json:"email"`
	Country  string         `json:"country"`
	City     string         `json:"city"`
	Street   string         `json:"street"`
	House    string         `json:"house"`
	UnitName model.UnitName `json:"unit_name"`
}

// ParticipantResponse is the full participant representation
type ParticipantResponse struct {
	ID         uint           `json:"id"`
	Name       string         `json:"name"`
	Email      string         `json:"email"`
	Country    string         `json:"country"`
	City       string         `json:"city"`
	Street     string         `json:"street"`
	House      string         `json:"house"`
	UnitName   model.UnitName `json:"unit_name"`
	Level      *model.Level   `json:"level"`
	SupplierID *uint          `json:"supplier"`
	Debt       string         `json:"debt"`
}

func newParticipantResponse(p *model.Participant) ParticipantResponse {
	return ParticipantResponse{
		ID:         p.ID,
		Name:       p.Name,
		Email:      p.Email,
		Country:    p.Country,
		City:       p.City,
		Street:     p.Street,
		House:      p.House,
		UnitName:   p.UnitName,
		Level:      p.Level,
		SupplierID: p.SupplierID,
		Debt:       p.Debt.StringFixed(2),
	}
}

// ClearDebtRequest lists the participants whose debt is written off
type ClearDebtRequest struct {
	IDs []uint `json:"ids" validate:"required"`
}

// checkParticipantRefs adds uniqueness and supplier errors to errs and returns
// the resolved supplier. selfID is zero for new participants.
func checkParticipantRefs(db *gorm.DB, req *ParticipantRequest, selfID uint, errs apierr.FieldErrors) (*model.Participant, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	if _, invalid := errs["email"]; !invalid {
		var count int64
		query := db.Model(&model.Participant{}).Where("email = ?", req.Email)
		if selfID != 0 {
			query = query.Where("id <> ?", selfID)
		}
		if err := query.Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			errs.Add("email", msgParticipantEmailTaken)
		}
	}

	if req.SupplierID == nil {
		return nil, nil
	}

	var supplier model.Participant
	if err := db.First(&supplier, *req.SupplierID).Error; err != nil {
		if isNotFound(err) {
			errs.Add("supplier", invalidPK(*req.SupplierID))
			return nil, nil
		}
		return nil, err
	}
	return &supplier, nil
}

// hierarchyError writes a rejected hierarchy rule or reports an unexpected error
func hierarchyError(c echo.Context, err error) error {
	var violation *hierarchy.Violation
	if errors.As(err, &violation) {
		logger.FromContext(c).Warn("Participant rejected by hierarchy rule",
			zap.String("rule", string(violation.Rule)))
		prometheus.RecordHierarchyRejection(string(violation.Rule))
		return apierr.NonField(c, violation.Error())
	}
	logger.FromContext(c).Error("Hierarchy validation failed", zap.Error(err))
	return apierr.Internal(c)
}

// CreateParticipant handles registering a new participant
func CreateParticipant(c echo.Context) error {
	log := logger.FromContext(c)
	log.Info("Creating new participant")

	var req ParticipantRequest
	errs, err := collectFieldErrors(validation.BindAndValidate(c, &req))
	if err != nil {
		return bindError(c, err)
	}

	db := database.WithContext(c.Request().Context())
	supplier, err := checkParticipantRefs(db, &req, 0, errs)
	if err != nil {
		log.Error("Failed to check participant references", zap.Error(err))
		return apierr.Internal(c)
	}
	if len(errs) > 0 {
		return apierr.Invalid(c, errs)
	}

	// factories always sit on level 0
	if req.Level == nil && req.UnitName == model.UnitFactory {
		req.Level = model.LevelPtr(model.LevelZero)
	}

	var participant model.Participant
	req.apply(&participant)

	if req.Level != nil || req.SupplierID != nil {
		if err := hierarchy.Validate(hierarchy.FromParticipant(&participant), supplier); err != nil {
			return hierarchyError(c, err)
		}
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := db.Create(&participant).Error; err != nil {
		log.Error("Failed to create participant",
			zap.String("email", req.Email),
			zap.Error(err))
		return apierr.Internal(c)
	}

	prometheus.RecordOperation("participant", "create")
	log.Info("Participant created successfully",
		zap.Uint("participant_id", participant.ID),
		zap.String("unit_name", string(participant.UnitName)))

	return c.JSON(http.StatusCreated, ParticipantCreatedResponse{
		ID:       participant.ID,
		Name:     participant.Name,
		Email:    participant.Email,
		Country:  participant.Country,
		City:     participant.City,
		Street:   participant.Street,
		House:    participant.House,
		UnitName: participant.UnitName,
	})
}

// ListParticipants handles retrieving participants, newest first,
// optionally filtered by country and city
func ListParticipants(c echo.Context) error {
	log := logger.FromContext(c)

	defer prometheus.TrackDBOperation("query")(time.Now())
	query := database.WithContext(c.Request().Context()).Order("id DESC")

	if country := c.QueryParam("country"); country != "" {
		query = query.Where("country = ?", country)
		log.Debug("Filtering participants by country", zap.String("country", country))
	}
	if city := c.QueryParam("city"); city != "" {
		query = query.Where("city = ?", city)
		log.Debug("Filtering participants by city", zap.String("city", city))
	}

	var participants []model.Participant
	if err := query.Find(&participants).Error; err != nil {
		log.Error("Failed to list participants", zap.Error(err))
		return apierr.Internal(c)
	}

	response := make([]ParticipantResponse, 0, len(participants))
	for i := range participants {
		response = append(response, newParticipantResponse(&participants[i]))
	}

	log.Info("Participants retrieved successfully", zap.Int("count", len(response)))
	return c.JSON(http.StatusOK, response)
}

// GetParticipant handles retrieving a single participant by ID
func GetParticipant(c echo.Context) error {
	log := logger.FromContext(c)

	id, ok := pathID(c)
	if !ok {
		return apierr.NotFound(c, participantModel)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var participant model.Participant
	if err := database.WithContext(c.Request().Context()).First(&participant, id).Error; err != nil {
		if isNotFound(err) {
			return apierr.NotFound(c, participantModel)
		}
		log.Error("Failed to load participant", zap.Uint("participant_id", id), zap.Error(err))
		return apierr.Internal(c)
	}

	return c.JSON(http.StatusOK, newParticipantResponse(&participant))
}

// UpdateParticipant handles PUT and PATCH on the caller's employer.
// PATCH keeps every field the body leaves out; PUT keeps only level and supplier.
func UpdateParticipant(c echo.Context) error {
	log := logger.FromContext(c)
	user := middleware.CurrentUser(c)

	id, ok := pathID(c)
	if !ok || user.EmployerID == nil || *user.EmployerID != id {
		log.Warn("Participant is not visible to the caller", zap.String("participant_id", c.Param("id")))
		return apierr.NotFound(c, participantModel)
	}

	db := database.WithContext(c.Request().Context())

	var participant model.Participant
	if err := db.First(&participant, id).Error; err != nil {
		if isNotFound(err) {
			return apierr.NotFound(c, participantModel)
		}
		log.Error("Failed to load participant", zap.Uint("participant_id", id), zap.Error(err))
		return apierr.Internal(c)
	}

	var req ParticipantRequest
	if c.Request().Method == http.MethodPatch {
		req = participantRequestFrom(&participant)
	} else {
		req = ParticipantRequest{Level: participant.Level, SupplierID: participant.SupplierID}
	}

	errs, err := collectFieldErrors(validation.BindAndValidate(c, &req))
	if err != nil {
		return bindError(c, err)
	}

	supplier, err := checkParticipantRefs(db, &req, participant.ID, errs)
	if err != nil {
		log.Error("Failed to check participant references", zap.Error(err))
		return apierr.Internal(c)
	}
	if len(errs) > 0 {
		return apierr.Invalid(c, errs)
	}

	req.apply(&participant)
	if err := hierarchy.Validate(hierarchy.FromParticipant(&participant), supplier); err != nil {
		return hierarchyError(c, err)
	}

	var buyers []model.Participant
	if err := db.Where("supplier_id = ?", participant.ID).Find(&buyers).Error; err != nil {
		log.Error("Failed to load buyers", zap.Uint("participant_id", id), zap.Error(err))
		return apierr.Internal(c)
	}
	if err := hierarchy.ValidateBuyers(&participant, buyers); err != nil {
		return hierarchyError(c, err)
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	err = db.Model(&participant).
		Select("name", "email", "country", "city", "street", "house", "unit_name", "level", "supplier_id").
		Updates(&participant).Error
	if err != nil {
		log.Error("Failed to update participant", zap.Uint("participant_id", id), zap.Error(err))
		return apierr.Internal(c)
	}

	prometheus.RecordOperation("participant", "update")
	log.Info("Participant updated successfully", zap.Uint("participant_id", id))
	return c.JSON(http.StatusOK, newParticipantResponse(&participant))
}

// DeleteParticipant handles deleting the participant registered under the caller's email.
// Suppliers, product owners and employers pointing at it are cleared.
func DeleteParticipant(c echo.Context) error {
	log := logger.FromContext(c)
	user := middleware.CurrentUser(c)

	id, ok := pathID(c)
	if !ok {
		return apierr.NotFound(c, participantModel)
	}

	err := database.Transaction(c.Request().Context(), func(tx *gorm.DB) error {
		defer prometheus.TrackDBOperation("delete")(time.Now())

		var participant model.Participant
		if err := tx.Where("id = ? AND email = ?", id, user.Email).First(&participant).Error; err != nil {
			return err
		}

		if err := tx.Model(&model.Participant{}).Where("supplier_id = ?", id).Update("supplier_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Product{}).Where("owner_id = ?", id).Update("owner_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.User{}).Where("employer_id = ?", id).Update("employer_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&participant).Error
	})
	if err != nil {
		if isNotFound(err) {
			log.Warn("Participant is not visible to the caller", zap.Uint("participant_id", id))
			return apierr.NotFound(c, participantModel)
		}
		log.Error("Failed to delete participant", zap.Uint("participant_id", id), zap.Error(err))
		return apierr.Internal(c)
	}

	prometheus.RecordOperation("participant", "delete")
	log.Info("Participant deleted successfully", zap.Uint("participant_id", id))
	return c.NoContent(http.StatusNoContent)
}

// ClearDebt writes off the debt of the listed participants
func ClearDebt(c echo.Context) error {
	log := logger.FromContext(c)

	var req ClearDebtRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return bindError(c, err)
	}

	var cleared int64
	if len(req.IDs) > 0 {
		err := database.Transaction(c.Request().Context(), func(tx *gorm.DB) error {
			defer prometheus.TrackDBOperation("update")(time.Now())
			result := tx.Model(&model.Participant{}).Where("id IN ?", req.IDs).Update("debt", decimal.Zero)
			cleared = result.RowsAffected
			return result.Error
		})
		if err != nil {
			log.Error("Failed to clear debt", zap.Uints("participant_ids", req.IDs), zap.Error(err))
			return apierr.Internal(c)
		}
	}

	prometheus.RecordOperation("participant", "clear_debt")
	log.Info("Debt cleared", zap.Int64("cleared", cleared))
	return c.JSON(http.StatusOK, echo.Map{"cleared": cleared})
}
