package api

import (
	"errors"
	"net/http"

	"tree-garden/internal/middleware"
	"tree-garden/internal/service"
	"tree-garden/pkg"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type Handlers struct {
	AuthService    service.AuthService
	CatalogService service.CatalogService
	GardenService  service.GardenService
	RewardService  service.RewardService
	Logger         pkg.Logger
}

func RegisterHandlers(e *echo.Echo, h *Handlers, jwtSecret string) {
	e.POST("/api/auth", h.PostAuth)

	g := e.Group("/api", middleware.JWTAuthMiddleware(jwtSecret, h.Logger))
	g.GET("/trees/:name", h.GetTree)
	g.POST("/trees", h.PostTree)
	g.DELETE("/trees/:name", h.DeleteTree)
	g.PUT("/trees/:name/price", h.PutTreePrice)
	g.POST("/plant", h.PostPlant)
	g.POST("/transfer", h.PostTransfer)
	g.POST("/return", h.PostReturn)
	g.GET("/rewards/:name", h.GetReward)
	g.POST("/rewards/:name/claim", h.PostClaimReward)
	g.GET("/info", h.GetInfo)
}

func (h *Handlers) PostAuth(ctx echo.Context) error {
	var req AuthRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, ErrorResponse{Errors: "Invalid request body"})
	}

	token, err := h.AuthService.Authenticate(req.Username, req.Password)
	if err != nil {
		h.Logger.Warn("invalid credentials", zap.String("username", req.Username), zap.Error(err))
		return ctx.JSON(http.StatusUnauthorized, ErrorResponse{Errors: "Invalid credentials"})
	}
	return ctx.JSON(http.StatusOK, AuthResponse{Token: token})
}

func (h *Handlers) GetTree(ctx echo.Context) error {
	if _, err := getUserIDFromContext(ctx); err != nil {
		return ctx.JSON(http.StatusUnauthorized, ErrorResponse{Errors: err.Error()})
	}
	name := ctx.Param("name")

	tree, found, err := h.CatalogService.GetTree(name)
	if err != nil {
		h.Logger.Error("failed to get tree", zap.String("tree", name), zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, ErrorResponse{Errors: "Internal server error"})
	}
	if !found {
		return ctx.JSON(http.StatusNotFound, ErrorResponse{Errors: "Tree not found"})
	}
	return ctx.JSON(http.StatusOK, TreeResponse{
		Name:         tree.Name,
		SerialNumber: tree.SerialNumber,
		Price:        tree.Price,
		Quantity:     tree.Quantity,
	})
}

func (h *Handlers) PostTree(ctx echo.Context) error {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return ctx.JSON(http.StatusUnauthorized, ErrorResponse{Errors: err.Error()})
	}
	var req AddTreeRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, ErrorResponse{Errors: "Invalid request body"})
	}

	created, err := h.CatalogService.AddTree(userID, req.Name, req.SerialNumber, req.Price, req.Quantity)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			return ctx.JSON(http.StatusForbidden, ErrorResponse{Errors: "Administrator capability required"})
		}
		if errors.Is(err, service.ErrInvalidTree) || errors.Is(err, service.ErrQuantityOverflow) {
			return ctx.JSON(http.StatusBadRequest, ErrorResponse{Errors: err.Error()})
		}
		h.Logger.Error("failed to add tree", zap.Int("userID", userID), zap.String("tree", req.Name), zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, ErrorResponse{Errors: "Internal server error"})
	}
	return ctx.JSON(http.StatusOK, AddTreeResponse{Created: created})
}

func (h *Handlers) DeleteTree(ctx echo.Context) error {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return ctx.JSON(http.StatusUnauthorized, ErrorResponse{Errors: err.Error()})
	}
	name := ctx.Param("name")

	if err := h.CatalogService.RemoveTree(userID, name); err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			return ctx.JSON(http.StatusForbidden, ErrorResponse{Errors: "Administrator capability required"})
		}
		if errors.Is(err, service.ErrTreeNotFound) {
			return ctx.JSON(http.StatusNotFound, ErrorResponse{Errors: "Tree not found"})
		}
		h.Logger.Error("failed to remove tree", zap.Int("userID", userID), zap.String("tree", name), zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, ErrorResponse{Errors: "Internal server error"})
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Tree removed successfully"})
}

func (h *Handlers) PutTreePrice(ctx echo.Context) error {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return ctx.JSON(http.StatusUnauthorized, ErrorResponse{Errors: err.Error()})
	}
	name := ctx.Param("name")
	var req UpdatePriceRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, ErrorResponse{Errors: "Invalid request body"})
	}

	if err := h.CatalogService.UpdatePrice(userID, name, req.Price); err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			return ctx.JSON(http.StatusForbidden, ErrorResponse{Errors: "Administrator capability required"})
		}
		if errors.Is(err, service.ErrTreeNotFound) {
			return ctx.JSON(http.StatusNotFound, ErrorResponse{Errors: "Tree not found"})
		}
		if errors.Is(err, service.ErrInvalidTree) {
			return ctx.JSON(http.StatusBadRequest, ErrorResponse{Errors: err.Error()})
		}
		h.Logger.Error("failed to update price", zap.Int("userID", userID), zap.String("tree", name), zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, ErrorResponse{Errors: "Internal server error"})
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Price updated successfully"})
}

func (h *Handlers) PostPlant(ctx echo.Context) error {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return ctx.JSON(http.StatusUnauthorized, ErrorResponse{Errors: err.Error()})
	}
	var req PlantRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, ErrorResponse{Errors: "Invalid request body"})
	}

	if err := h.GardenService.Plant(userID, req.Tree, req.Quantity, req.Payment); err != nil {
		switch {
		case errors.Is(err, service.ErrTreeNotFound):
			return ctx.JSON(http.StatusBadRequest, ErrorResponse{Errors: "Tree not found"})
		case errors.Is(err, service.ErrUnavailable),
			errors.Is(err, service.ErrInsufficientPayment),
			errors.Is(err, service.ErrInvalidQuantity),
			errors.Is(err, service.ErrQuantityOverflow):
			return ctx.JSON(http.StatusBadRequest, ErrorResponse{Errors: err.Error()})
		}
		h.Logger.Error("failed to plant", zap.Int("userID", userID), zap.String("tree", req.Tree), zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, ErrorResponse{Errors: "Internal server error"})
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Tree planted successfully"})
}

func (h *Handlers) PostTransfer(ctx echo.Context) error {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return ctx.JSON(http.StatusUnauthorized, ErrorResponse{Errors: err.Error()})
	}
	var req TransferRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, ErrorResponse{Errors: "Invalid request body"})
	}

	if err := h.GardenService.Transfer(userID, req.ToUser, req.Tree, req.Quantity); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRecipient),
			errors.Is(err, service.ErrInvalidQuantity):
			return ctx.JSON(http.StatusBadRequest, ErrorResponse{Errors: err.Error()})
		case errors.Is(err, service.ErrRecipientNotFound):
			return ctx.JSON(http.StatusBadRequest, ErrorResponse{Errors: "Recipient not found"})
		case errors.Is(err, service.ErrSaplingNotFound):
			return ctx.JSON(http.StatusBadRequest, ErrorResponse{Errors: "No matching sapling"})
		}
		h.Logger.Error("failed to transfer",
			zap.Int("fromUserID", userID),
			zap.String("toUser", req.ToUser),
			zap.String("tree", req.Tree),
			zap.Int64("quantity", req.Quantity),
			zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, ErrorResponse{Errors: "Internal server error"})
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Tree transferred successfully"})
}

func (h *Handlers) PostReturn(ctx echo.Context) error {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return ctx.JSON(http.StatusUnauthorized, ErrorResponse{Errors: err.Error()})
	}
	var req ReturnRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, ErrorResponse{Errors: "Invalid request body"})
	}

	refund, err := h.GardenService.Return(userID, req.Tree, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTreeNotFound):
			return ctx.JSON(http.StatusBadRequest, ErrorResponse{Errors: "Tree not found"})
		case errors.Is(err, service.ErrSaplingNotFound):
			return ctx.JSON(http.StatusBadRequest, ErrorResponse{Errors: "No matching sapling"})
		case errors.Is(err, service.ErrInsufficientFunds),
			errors.Is(err, service.ErrInvalidQuantity):
			return ctx.JSON(http.StatusBadRequest, ErrorResponse{Errors: err.Error()})
		}
		h.Logger.Error("failed to return", zap.Int("userID", userID), zap.String("tree", req.Tree), zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, ErrorResponse{Errors: "Internal server error"})
	}
	return ctx.JSON(http.StatusOK, ReturnResponse{Refund: refund})
}

func (h *Handlers) GetReward(ctx echo.Context) error {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return ctx.JSON(http.StatusUnauthorized, ErrorResponse{Errors: err.Error()})
	}
	name := ctx.Param("name")

	snap, err := h.RewardService.Calculate(userID, name)
	if err != nil {
		if errors.Is(err, service.ErrSaplingNotFound) {
			return ctx.JSON(http.StatusNotFound, ErrorResponse{Errors: "No matching sapling"})
		}
		h.Logger.Error("failed to calculate reward", zap.Int("userID", userID), zap.String("tree", name), zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, ErrorResponse{Errors: "Internal server error"})
	}
	return ctx.JSON(http.StatusOK, RewardResponse{
		Tree:    snap.TreeName,
		Fruits:  snap.Fruits,
		Flowers: snap.Flowers,
		Woods:   snap.Woods,
	})
}

func (h *Handlers) PostClaimReward(ctx echo.Context) error {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return ctx.JSON(http.StatusUnauthorized, ErrorResponse{Errors: err.Error()})
	}
	name := ctx.Param("name")

	snap, err := h.RewardService.Claim(userID, name)
	if err != nil {
		if errors.Is(err, service.ErrSaplingNotFound) {
			return ctx.JSON(http.StatusBadRequest, ErrorResponse{Errors: "No matching sapling"})
		}
		h.Logger.Error("failed to claim reward", zap.Int("userID", userID), zap.String("tree", name), zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, ErrorResponse{Errors: "Internal server error"})
	}
	claimedAt := snap.ClaimedAt
	return ctx.JSON(http.StatusOK, RewardResponse{
		Tree:      snap.TreeName,
		Fruits:    snap.Fruits,
		Flowers:   snap.Flowers,
		Woods:     snap.Woods,
		ClaimedAt: &claimedAt,
	})
}

func (h *Handlers) GetInfo(ctx echo.Context) error {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return ctx.JSON(http.StatusUnauthorized, ErrorResponse{Errors: err.Error()})
	}

	info, err := h.GardenService.GetHolderInfo(userID)
	if err != nil {
		h.Logger.Error("failed to get holder info", zap.Int("userID", userID), zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, ErrorResponse{Errors: "Internal server error"})
	}
	return ctx.JSON(http.StatusOK, convertToInfoResponse(info))
}

func getUserIDFromContext(ctx echo.Context) (int, error) {
	claims := ctx.Get("user")
	if claims == nil {
		return 0, errUnauthorized("Unauthorized")
	}
	jwtClaims, ok := claims.(jwt.MapClaims)
	if !ok {
		return 0, errUnauthorized("Invalid token claims")
	}
	uidFloat, ok := jwtClaims["user_id"].(float64)
	if !ok {
		return 0, errUnauthorized("Invalid token claims")
	}
	return int(uidFloat), nil
}

func convertToInfoResponse(info service.Info) InfoResponse {
	resp := InfoResponse{
		Saplings: []SaplingResponse{},
		Rewards:  []RewardResponse{},
	}
	for _, s := range info.Saplings {
		resp.Saplings = append(resp.Saplings, SaplingResponse{
			Tree:      s.TreeName,
			Quantity:  s.Quantity,
			Price:     s.Price,
			PlantedAt: s.PlantedAt,
		})
	}
	for _, r := range info.Rewards {
		claimedAt := r.ClaimedAt
		resp.Rewards = append(resp.Rewards, RewardResponse{
			Tree:      r.TreeName,
			Fruits:    r.Fruits,
			Flowers:   r.Flowers,
			Woods:     r.Woods,
			ClaimedAt: &claimedAt,
		})
	}
	return resp
}

func errUnauthorized(msg string) error {
	return echo.NewHTTPError(http.StatusUnauthorized, msg)
}
