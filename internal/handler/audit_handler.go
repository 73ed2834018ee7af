package handler

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/velorek/notiq/internal/ledger"
)

// ChainVerifier walks the audit chain and reports the first broken record.
type ChainVerifier interface {
	VerifyChain(ctx context.Context) (*ledger.VerifyResult, error)
}

type AuditHandler struct {
	verifier ChainVerifier
}

func NewAuditHandler(verifier ChainVerifier) (*AuditHandler, error) {
	if verifier == nil {
		return nil, fmt.Errorf("chain verifier is required")
	}
	return &AuditHandler{verifier: verifier}, nil
}

func RegisterAuditRoutes(router fiber.Router, verifier ChainVerifier) error {
	h, err := NewAuditHandler(verifier)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/audit/verify", h.VerifyChain)

	return nil
}

// VerifyChain always answers 200; a broken chain is a finding, not a request
// failure.
func (h *AuditHandler) VerifyChain(c *fiber.Ctx) error {
	result, err := h.verifier.VerifyChain(c.Context())
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(result)
}
