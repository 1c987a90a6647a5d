package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/eco-consumo/internal/model"
	"github.com/iyhunko/eco-consumo/internal/service"
)

const (
	msgBarcodeNotProvided   = "Código de barras não fornecido"
	msgBarcodeRequired      = "Código de barras é obrigatório"
	msgEvaluationRequired   = "Avaliação personalizada é obrigatória"
	msgInvalidRequestBody   = "Corpo da requisição inválido."
	msgUnexpected           = "Ocorreu um erro inesperado."
	msgNotFoundUpstream     = "Produto não encontrado na Open Food Facts"
	msgNotFoundForRating    = "Produto não encontrado para avaliação"
	msgUpstreamTimeout      = "Tempo limite excedido ao buscar dados do produto."
	msgUpstreamUnavailable  = "Erro ao buscar dados do produto na Open Food Facts."
	msgInvalidRating        = "A avaliação personalizada deve ser entre 0 e 10."
	msgStorageQueryFailed   = "Erro interno ao consultar o banco de dados"
	msgStorageWriteFailed   = "Erro interno ao salvar o produto."
	msgRatingStorageFailure = "Erro interno ao atualizar a avaliação."
)

type errorResponse struct {
	status  int
	message string
}

var lookupErrors = map[service.ErrorKind]errorResponse{
	service.KindMissingBarcode:      {http.StatusBadRequest, msgBarcodeNotProvided},
	service.KindProductNotFound:     {http.StatusNotFound, msgNotFoundUpstream},
	service.KindUpstreamTimeout:     {http.StatusGatewayTimeout, msgUpstreamTimeout},
	service.KindUpstreamUnavailable: {http.StatusServiceUnavailable, msgUpstreamUnavailable},
	service.KindStorageQueryFailed:  {http.StatusInternalServerError, msgStorageQueryFailed},
	service.KindStorageWriteFailed:  {http.StatusInternalServerError, msgStorageWriteFailed},
}

var ratingErrors = map[service.ErrorKind]errorResponse{
	service.KindInvalidRating:      {http.StatusBadRequest, msgInvalidRating},
	service.KindProductNotFound:    {http.StatusNotFound, msgNotFoundForRating},
	service.KindStorageQueryFailed: {http.StatusInternalServerError, msgRatingStorageFailure},
	service.KindStorageWriteFailed: {http.StatusInternalServerError, msgRatingStorageFailure},
}

// ProductFlows is the subset of service.ProductService used by ProductController.
type ProductFlows interface {
	GetOrFetch(ctx context.Context, barcodeInput string) (*model.Product, bool, error)
	Rate(ctx context.Context, barcode string, value float64) (*model.Product, error)
}

// ProductController handles HTTP requests for product operations.
type ProductController struct {
	productService ProductFlows
}

// NewProductController creates a new ProductController with the given product service.
func NewProductController(productService ProductFlows) *ProductController {
	return &ProductController{
		productService: productService,
	}
}

// EvaluateRequest represents the request body for rating a product.
// Both JSON and form bodies are accepted.
type EvaluateRequest struct {
	Barcode          *string  `json:"barcode" form:"barcode"`
	CustomEvaluation *float64 `json:"custom_evaluation" form:"custom_evaluation"`
}

// ProductResponse represents the response body for a product.
type ProductResponse struct {
	Barcode             string   `json:"barcode"`
	Name                string   `json:"name"`
	EcoScore            string   `json:"eco_score"`
	EcoScoreDescription string   `json:"eco_score_description"`
	CustomEvaluation    *float64 `json:"custom_evaluation"`
}

var errFieldMissing = errors.New("required field missing")

// validateEvaluateRequest returns the client message for the first missing field.
func validateEvaluateRequest(req EvaluateRequest) (string, error) {
	if req.Barcode == nil || strings.TrimSpace(*req.Barcode) == "" {
		return msgBarcodeRequired, errFieldMissing
	}
	if req.CustomEvaluation == nil {
		return msgEvaluationRequired, errFieldMissing
	}
	return "", nil
}

// GetProduct handles GET /products/:barcode and GET /products/?barcode=.
func (pc *ProductController) GetProduct(c *gin.Context) {
	barcode := c.Param("barcode")
	if barcode == "" {
		barcode = c.Query("barcode")
	}

	product, created, err := pc.productService.GetOrFetch(c.Request.Context(), barcode)
	if err != nil {
		writeError(c, lookupErrors, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, NewProductResponse(product))
}

// Evaluate handles POST /products/evaluate.
func (pc *ProductController) Evaluate(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBind(&req); err != nil {
		slog.Warn("Invalid evaluate request", slog.Any("err", err))
		c.JSON(http.StatusBadRequest, gin.H{"message": msgInvalidRequestBody})
		return
	}
	if msg, err := validateEvaluateRequest(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": msg})
		return
	}

	product, err := pc.productService.Rate(c.Request.Context(), *req.Barcode, *req.CustomEvaluation)
	if err != nil {
		writeError(c, ratingErrors, err)
		return
	}

	c.JSON(http.StatusOK, NewProductResponse(product))
}

func writeError(c *gin.Context, responses map[service.ErrorKind]errorResponse, err error) {
	resp, ok := responses[service.KindOf(err)]
	if !ok {
		slog.Error("Unexpected error", slog.String("path", c.Request.URL.Path), slog.Any("err", err))
		resp = errorResponse{http.StatusInternalServerError, msgUnexpected}
	}
	c.JSON(resp.status, gin.H{"message": resp.message})
}

// NewProductResponse renders the public view of a product record.
func NewProductResponse(product *model.Product) ProductResponse {
	return ProductResponse{
		Barcode:             product.Barcode,
		Name:                product.Name,
		EcoScore:            product.EcoScore,
		EcoScoreDescription: product.EcoScoreDescription,
		CustomEvaluation:    product.CustomEvaluation,
	}
}
