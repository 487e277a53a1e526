package assertionhandler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ZacharyEspiritu/tee-assertion-generator/api"
	"github.com/ZacharyEspiritu/tee-assertion-generator/attestation"
	"github.com/ZacharyEspiritu/tee-assertion-generator/cryptoutils"
	"github.com/ZacharyEspiritu/tee-assertion-generator/interfaces"
	"github.com/ZacharyEspiritu/tee-assertion-generator/metrics"
	"github.com/ZacharyEspiritu/tee-assertion-generator/secrets"
	"github.com/go-chi/chi/v5"
)

// EnvelopeSlot is the store slot holding the sealed attestation key.
const EnvelopeSlot = "attestation-key"

// maxBodySize is the maximum allowed request body size (1MB).
const maxBodySize = 1024 * 1024

// Handler processes HTTP requests for the assertion generator service.
//
// Attested routes require peer measurement headers injected by the
// attested-TLS terminating proxy and authorize only peers whose signer
// measurement matches this enclave's trust domain. Public routes expose
// the certification material, which carries no secrets. Admin routes
// require an operator endorsement.
type Handler struct {
	generator   *attestation.AssertionGenerator
	sealer      interfaces.Sealer
	store       interfaces.EnvelopeStore
	attestation cryptoutils.AttestationProvider

	// trustedSigner is the signer measurement of this enclave's trust
	// domain; attested peers must present it.
	trustedSigner interfaces.Measurement

	// operators is the allowlist for admin request endorsements.
	operators map[interfaces.OperatorAddress]bool

	log *slog.Logger
}

// HandlerConfig carries the handler's collaborators and policy.
type HandlerConfig struct {
	Generator           *attestation.AssertionGenerator
	Sealer              interfaces.Sealer
	Store               interfaces.EnvelopeStore
	AttestationProvider cryptoutils.AttestationProvider
	TrustedSigner       interfaces.Measurement
	Operators           []interfaces.OperatorAddress
	Log                 *slog.Logger
}

// NewHandler creates an HTTP request handler for the assertion service.
func NewHandler(cfg *HandlerConfig) *Handler {
	operators := make(map[interfaces.OperatorAddress]bool, len(cfg.Operators))
	for _, addr := range cfg.Operators {
		operators[addr] = true
	}

	return &Handler{
		generator:     cfg.Generator,
		sealer:        cfg.Sealer,
		store:         cfg.Store,
		attestation:   cfg.AttestationProvider,
		trustedSigner: cfg.TrustedSigner,
		operators:     operators,
		log:           cfg.Log,
	}
}

// RegisterRoutes configures the HTTP router with assertion service
// endpoints:
//   - POST /api/attested/assert - generate an assertion (mutually attested peers only)
//   - GET /api/public/certification - certification material for the attestation key
//   - POST /api/admin/certificates - operator-endorsed certificate chain update
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/attested/assert", h.HandleAssert)
	r.Get("/api/public/certification", h.HandleCertification)
	r.Post("/api/admin/certificates", h.HandleCertificateUpdate)
}

// HandleAssert processes assertion requests from mutually attested peers.
//
// URL format: POST /api/attested/assert
// Required headers:
//   - X-Flashbots-Attestation-Type: attestation mechanism of the peer
//   - X-Flashbots-Measurement: JSON-encoded measurement values
//
// Request body: JSON-encoded api.AssertionRequest
// Response: JSON-encoded api.AssertionResponse
//
// Status codes:
//   - 200 OK: assertion generated
//   - 400 Bad Request: malformed request body
//   - 403 Forbidden: peer is not in this enclave's trust domain
//   - 500 Internal Server Error: signing failed
func (h *Handler) HandleAssert(w http.ResponseWriter, r *http.Request) {
	attestationType, peer, err := cryptoutils.PeerIdentityFromATLS(r)
	if err != nil {
		h.log.Warn("Rejected unattested assertion request", "err", err)
		metrics.AssertionsGenerated.WithLabelValues("unauthorized").Inc()
		http.Error(w, "Peer attestation required", http.StatusForbidden)
		return
	}

	if !peer.Equal(h.trustedSigner) {
		h.log.Warn("Rejected assertion request from untrusted peer",
			slog.String("attestation_type", attestationType.StringID),
			slog.String("peer", peer.String()))
		metrics.AssertionsGenerated.WithLabelValues("unauthorized").Inc()
		http.Error(w, "Peer is not in the trust domain", http.StatusForbidden)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var req api.AssertionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Malformed assertion request", http.StatusBadRequest)
		return
	}

	assertion, err := h.generator.GenerateAssertion(req.Payload)
	metrics.AssertionsGenerated.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		h.log.Error("Failed to generate assertion", "err", err)
		http.Error(w, "Failed to generate assertion", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.log, api.AssertionResponse{Assertion: assertion})
}

// HandleCertification serves the certification material for the
// attestation key: the serialized sign-report payload, its report data,
// and a fresh hardware quote over that report data. A certifier verifies
// the quote, checks the report data matches the payload, and issues
// certificate chains for the key the payload carries.
//
// URL format: GET /api/public/certification
//
// Status codes:
//   - 200 OK: certification material produced
//   - 500 Internal Server Error: payload construction or quoting failed
func (h *Handler) HandleCertification(w http.ResponseWriter, r *http.Request) {
	verifying, err := h.generator.VerifyingKey()
	if err != nil {
		h.log.Error("Failed to derive verifying key", "err", err)
		http.Error(w, "Failed to derive verifying key", http.StatusInternalServerError)
		return
	}

	payload, err := attestation.BuildSignReportPayload(verifying)
	if err != nil {
		h.log.Error("Failed to build sign report payload", "err", err)
		http.Error(w, "Failed to build certification payload", http.StatusInternalServerError)
		return
	}

	reportData, err := attestation.ReportDataForSignReport(payload)
	if err != nil {
		h.log.Error("Failed to derive report data", "err", err)
		http.Error(w, "Failed to derive report data", http.StatusInternalServerError)
		return
	}

	quote, err := h.attestation.Attest(reportData)
	if err != nil {
		h.log.Error("Failed to produce quote", "err", err)
		http.Error(w, "Failed to produce attestation quote", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.log, api.CertificationResponse{
		SignReportPayload: payload,
		ReportData:        reportData.Bytes(),
		AttestationType:   h.attestation.AttestationType().StringID,
		Quote:             quote,
	})
}

// HandleCertificateUpdate replaces the certificate chains bound to the
// sealed attestation key. The request must carry a valid endorsement from
// an allowlisted operator, and every chain must certify the current
// attestation public key. The secret is resealed and persisted with the
// new chains before the serving state is swapped.
//
// URL format: POST /api/admin/certificates
// Request body: JSON-encoded api.CertificateUpdateRequest
//
// Status codes:
//   - 200 OK: chains updated and envelope persisted
//   - 400 Bad Request: malformed request or chains that don't certify the key
//   - 403 Forbidden: missing or unauthorized operator endorsement
//   - 500 Internal Server Error: resealing or persistence failed
func (h *Handler) HandleCertificateUpdate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var req api.CertificateUpdateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Malformed certificate update request", http.StatusBadRequest)
		return
	}

	operator, err := api.RecoverOperator(req)
	if err != nil {
		h.log.Warn("Certificate update with invalid endorsement", "err", err)
		http.Error(w, "Invalid operator endorsement", http.StatusForbidden)
		return
	}
	if !h.operators[operator] {
		h.log.Warn("Certificate update from unauthorized operator",
			slog.String("operator", operator.String()))
		http.Error(w, "Operator not authorized", http.StatusForbidden)
		return
	}

	// Validate before resealing so a bad chain never reaches storage.
	if err := h.generator.ValidateCertificateChains(req.CertificateChains); err != nil {
		h.log.Warn("Certificate update rejected", "err", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	env, err := secrets.Seal(h.sealer, secrets.DefaultSecretIdentity(), req.CertificateChains, h.generator.SigningKey())
	metrics.SealOperations.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		h.log.Error("Failed to reseal secret with new chains", "err", err)
		http.Error(w, "Failed to reseal secret", http.StatusInternalServerError)
		return
	}

	envBytes, err := env.Serialize()
	if err != nil {
		h.log.Error("Failed to serialize envelope", "err", err)
		http.Error(w, "Failed to serialize envelope", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	if err := h.store.Save(ctx, EnvelopeSlot, envBytes); err != nil {
		h.log.Error("Failed to persist resealed envelope", "err", err)
		http.Error(w, "Failed to persist envelope", http.StatusInternalServerError)
		return
	}

	// Swap the served chains only after the resealed envelope is durable,
	// so a restart never reverts what this instance is serving.
	if err := h.generator.UpdateCertificateChains(req.CertificateChains); err != nil {
		h.log.Error("Failed to swap certificate chains", "err", err)
		http.Error(w, "Failed to update certificate chains", http.StatusInternalServerError)
		return
	}

	h.log.Info("Certificate chains updated",
		slog.String("operator", operator.String()),
		slog.Int("chains", len(req.CertificateChains)))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"updated"}`))
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to encode response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
