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
)

// ProductRequest defines the structure for product creation/update requests.
// The owner always comes from the caller's employer.
type ProductRequest struct {
	ProductName string `json:"product_name" validate:"required,max=150"`
	Model       string `json:"model" validate:"required,max=50"`
	ReleaseDate string `json:"release_date" validate:"required,date"`
}

// ProductResponse is the product representation
type ProductResponse struct {
	ID          uint   `json:"id"`
	ProductName string `json:"product_name"`
	Model       string `json:"model"`
	ReleaseDate string `json:"release_date"`
	OwnerID     *uint  `json:"owner"`
}

func newProductResponse(p *model.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		ProductName: p.ProductName,
		Model:       p.Model,
		ReleaseDate: p.ReleaseDate.Format(model.DateLayout),
		OwnerID:     p.OwnerID,
	}
}

// apply copies a validated request onto p
func (r *ProductRequest) apply(p *model.Product) {
	p.ProductName = r.ProductName
	p.Model = r.Model
	// validated by the date tag
	p.ReleaseDate, _ = time.Parse(model.DateLayout, r.ReleaseDate)
}

// CreateProduct handles creating a product owned by the caller's employer
func CreateProduct(c echo.Context) error {
	log := logger.FromContext(c)
	user := middleware.CurrentUser(c)
	log.Info("Creating new product")

	var req ProductRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return bindError(c, err)
	}

	product := model.Product{OwnerID: user.EmployerID}
	req.apply(&product)

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := database.WithContext(c.Request().Context()).Create(&product).Error; err != nil {
		log.Error("Failed to create product",
			zap.String("product_name", req.ProductName),
			zap.Error(err))
		return apierr.Internal(c)
	}

	prometheus.RecordOperation("product", "create")
	log.Info("Product created successfully",
		zap.Uint("product_id", product.ID),
		zap.String("product_name", product.ProductName))
	return c.JSON(http.StatusCreated, newProductResponse(&product))
}

// ListProducts handles retrieving all products
func ListProducts(c echo.Context) error {
	log := logger.FromContext(c)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var products []model.Product
	if err := database.WithContext(c.Request().Context()).Order("id").Find(&products).Error; err != nil {
		log.Error("Failed to list products", zap.Error(err))
		return apierr.Internal(c)
	}

	response := make([]ProductResponse, 0, len(products))
	for i := range products {
		response = append(response, newProductResponse(&products[i]))
	}

	log.Info("Products retrieved successfully", zap.Int("count", len(response)))
	return c.JSON(http.StatusOK, response)
}

// GetProduct handles retrieving a single product by ID
func GetProduct(c echo.Context) error {
	log := logger.FromContext(c)

	id, ok := pathID(c)
	if !ok {
		return apierr.NotFound(c, productModel)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var product model.Product
	if err := database.WithContext(c.Request().Context()).First(&product, id).Error; err != nil {
		if isNotFound(err) {
			return apierr.NotFound(c, productModel)
		}
		log.Error("Failed to load product", zap.Uint("product_id", id), zap.Error(err))
		return apierr.Internal(c)
	}

	return c.JSON(http.StatusOK, newProductResponse(&product))
}

// findOwnedProduct loads a product owned by the caller's employer
func findOwnedProduct(c echo.Context, id uint) (*model.Product, error) {
	user := middleware.CurrentUser(c)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var product model.Product
	query := whereRef(database.WithContext(c.Request().Context()), "owner_id", user.EmployerID)
	if err := query.First(&product, id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// UpdateProduct handles PUT and PATCH on a product owned by the caller's employer
func UpdateProduct(c echo.Context) error {
	log := logger.FromContext(c)

	id, ok := pathID(c)
	if !ok {
		return apierr.NotFound(c, productModel)
	}

	product, err := findOwnedProduct(c, id)
	if err != nil {
		if isNotFound(err) {
			log.Warn("Product is not visible to the caller", zap.Uint("product_id", id))
			return apierr.NotFound(c, productModel)
		}
		log.Error("Failed to load product", zap.Uint("product_id", id), zap.Error(err))
		return apierr.Internal(c)
	}

	var req ProductRequest
	if c.Request().Method == http.MethodPatch {
		req = ProductRequest{
			ProductName: product.ProductName,
			Model:       product.Model,
			ReleaseDate: product.ReleaseDate.Format(model.DateLayout),
		}
	}
	if err := validation.BindAndValidate(c, &req); err != nil {
		return bindError(c, err)
	}
	req.apply(product)

	defer prometheus.TrackDBOperation("update")(time.Now())
	err = database.WithContext(c.Request().Context()).Model(product).
		Select("product_name", "model", "release_date").
		Updates(product).Error
	if err != nil {
		log.Error("Failed to update product", zap.Uint("product_id", id), zap.Error(err))
		return apierr.Internal(c)
	}

	prometheus.RecordOperation("product", "update")
	log.Info("Product updated successfully", zap.Uint("product_id", id))
	return c.JSON(http.StatusOK, newProductResponse(product))
}

// DeleteProduct handles deleting a product owned by the caller's employer
func DeleteProduct(c echo.Context) error {
	log := logger.FromContext(c)

	id, ok := pathID(c)
	if !ok {
		return apierr.NotFound(c, productModel)
	}

	product, err := findOwnedProduct(c, id)
	if err != nil {
		if isNotFound(err) {
			log.Warn("Product is not visible to the caller", zap.Uint("product_id", id))
			return apierr.NotFound(c, productModel)
		}
		log.Error("Failed to load product", zap.Uint("product_id", id), zap.Error(err))
		return apierr.Internal(c)
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := database.WithContext(c.Request().Context()).Delete(product).Error; err != nil {
		log.Error("Failed to delete product", zap.Uint("product_id", id), zap.Error(err))
		return apierr.Internal(c)
	}

	prometheus.RecordOperation("product", "delete")
	log.Info("Product deleted successfully", zap.Uint("product_id", id))
	return c.NoContent(http.StatusNoContent)
}
