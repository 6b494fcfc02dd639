package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/mailmind/backend/internal/mailbox"
	"github.com/mailmind/backend/internal/models"
	"github.com/mailmind/backend/internal/provider"
)

// EmailsHandler serves normalized mailbox listings.
type EmailsHandler struct {
	mailbox *mailbox.Service
}

func NewEmailsHandler(svc *mailbox.Service) *EmailsHandler {
	return &EmailsHandler{mailbox: svc}
}

// GetEmails lists the identity's recent mail from one provider. A missing
// provider link is the caller's problem (400); a provider outage is not (502).
func (h *EmailsHandler) GetEmails(kind models.ProviderKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authCtx, ok := identityFromContext(w, r)
		if !ok {
			return
		}

		emails, err := h.mailbox.GetNormalizedEmails(r.Context(), authCtx.Identity, kind)
		if errors.Is(err, mailbox.ErrCredentialMissing) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%s authentication required", providerLabel(kind)))
			return
		}
		if errors.Is(err, provider.ErrProviderUnavailable) {
			log.Printf("EmailsHandler: %s listing failed for %s: %v", kind, authCtx.Identity.ID, err)
			writeError(w, http.StatusBadGateway, "Failed to fetch emails")
			return
		}
		if err != nil {
			log.Printf("EmailsHandler: %s listing failed for %s: %v", kind, authCtx.Identity.ID, err)
			writeError(w, http.StatusInternalServerError, "Failed to fetch emails")
			return
		}

		writeJSON(w, http.StatusOK, models.EmailsResponse{Success: true, Emails: emails})
	}
}

func providerLabel(kind models.ProviderKind) string {
	switch kind {
	case models.ProviderGoogle:
		return "Google"
	case models.ProviderMicrosoft:
		return "Microsoft"
	default:
		return string(kind)
	}
}
