package assertionhandler

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ZacharyEspiritu/tee-assertion-generator/api"
	"github.com/ZacharyEspiritu/tee-assertion-generator/attestation"
	"github.com/ZacharyEspiritu/tee-assertion-generator/common"
	"github.com/ZacharyEspiritu/tee-assertion-generator/cryptoutils"
	"github.com/ZacharyEspiritu/tee-assertion-generator/interfaces"
	"github.com/ZacharyEspiritu/tee-assertion-generator/sealing"
	"github.com/ZacharyEspiritu/tee-assertion-generator/secrets"
	"github.com/ZacharyEspiritu/tee-assertion-generator/storage"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const operatorPrivKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

var trustedRegisters = map[int]string{0: "00", 1: "01", 2: "02"}

type testService struct {
	handler *Handler
	router  *chi.Mux
	store   interfaces.EnvelopeStore
	sealer  interfaces.Sealer
}

func newTestService(t *testing.T) *testService {
	t.Helper()

	logger := common.SetupLogger(&common.LoggingOpts{Service: "test"})

	rootSecret, err := sealing.GenerateRootSecret()
	require.NoError(t, err)
	sealer, err := sealing.NewLocalSealer(sealing.LocalSealerConfig{
		RootSecret:        rootSecret,
		Policy:            interfaces.SealToSigner,
		SignerMeasurement: interfaces.Measurement{0x01},
		DefaultHeader:     secrets.DefaultSecretIdentity(),
	})
	require.NoError(t, err)

	store, err := storage.NewFileStore(t.TempDir(), logger)
	require.NoError(t, err)

	key, err := cryptoutils.NewEcdsaP256SigningKey()
	require.NoError(t, err)
	generator, err := attestation.NewAssertionGenerator(key, nil)
	require.NoError(t, err)

	operatorKey, err := crypto.HexToECDSA(operatorPrivKey)
	require.NoError(t, err)
	operator, err := interfaces.NewOperatorAddressFromBytes(crypto.PubkeyToAddress(operatorKey.PublicKey).Bytes())
	require.NoError(t, err)

	handler := NewHandler(&HandlerConfig{
		Generator:           generator,
		Sealer:              sealer,
		Store:               store,
		AttestationProvider: cryptoutils.DummyAttestationProvider{},
		TrustedSigner:       interfaces.MeasurementFromRegisters(trustedRegisters),
		Operators:           []interfaces.OperatorAddress{operator},
		Log:                 logger,
	})

	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	return &testService{handler: handler, router: router, store: store, sealer: sealer}
}

func attestedRequest(t *testing.T, method, target string, body []byte, registers map[int]string) *http.Request {
	t.Helper()

	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set(cryptoutils.AttestationTypeHeader, cryptoutils.DummyAttestation.StringID)

	registersJSON, err := json.Marshal(registers)
	require.NoError(t, err)
	req.Header.Set(cryptoutils.MeasurementHeader, string(registersJSON))
	return req
}

func TestHandleAssert(t *testing.T) {
	service := newTestService(t)

	body, err := json.Marshal(api.AssertionRequest{Payload: []byte("verifier nonce")})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	service.router.ServeHTTP(rec, attestedRequest(t, http.MethodPost, "/api/attested/assert", body, trustedRegisters))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.AssertionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []byte("verifier nonce"), resp.Assertion.Payload)
	assert.NotEmpty(t, resp.Assertion.Signature)

	// The signature verifies under the generator's public key.
	verifying, err := service.handler.generator.VerifyingKey()
	require.NoError(t, err)
	assert.NoError(t, verifying.Verify(resp.Assertion.Payload, resp.Assertion.Signature))
}

func TestHandleAssertRejectsUnattestedPeer(t *testing.T) {
	service := newTestService(t)

	body, err := json.Marshal(api.AssertionRequest{Payload: []byte("data")})
	require.NoError(t, err)

	// No attestation headers at all.
	rec := httptest.NewRecorder()
	service.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/attested/assert", bytes.NewReader(body)))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Attested, but with a measurement outside the trust domain.
	rec = httptest.NewRecorder()
	service.router.ServeHTTP(rec, attestedRequest(t, http.MethodPost, "/api/attested/assert",
		body, map[int]string{0: "ff"}))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleAssertRejectsMalformedBody(t *testing.T) {
	service := newTestService(t)

	rec := httptest.NewRecorder()
	service.router.ServeHTTP(rec, attestedRequest(t, http.MethodPost, "/api/attested/assert",
		[]byte("not json"), trustedRegisters))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCertification(t *testing.T) {
	service := newTestService(t)

	rec := httptest.NewRecorder()
	service.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/public/certification", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.CertificationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, cryptoutils.DummyAttestation.StringID, resp.AttestationType)
	assert.Len(t, resp.ReportData, interfaces.ReportDataSize)
	assert.NotEmpty(t, resp.Quote)

	// The served report data matches an independent derivation from the
	// served payload.
	derived, err := attestation.ReportDataForSignReport(resp.SignReportPayload)
	require.NoError(t, err)
	assert.Equal(t, derived.Bytes(), resp.ReportData)
}

func issueChainFor(t *testing.T, pubDER []byte) interfaces.CertificateChain {
	t.Helper()

	caKey, err := cryptoutils.NewEcdsaP256SigningKey()
	require.NoError(t, err)
	caCert, err := cryptoutils.NewCACertificate("Test Authority", caKey)
	require.NoError(t, err)
	keyCert, err := cryptoutils.IssueKeyCertificate(caCert, caKey, pubDER, "Assertion Key")
	require.NoError(t, err)

	return interfaces.CertificateChain{Certificates: []interfaces.Certificate{keyCert, caCert}}
}

func TestHandleCertificateUpdate(t *testing.T) {
	service := newTestService(t)

	pubDER, err := service.handler.generator.PublicKeyDER()
	require.NoError(t, err)

	req := api.CertificateUpdateRequest{
		CertificateChains: []interfaces.CertificateChain{issueChainFor(t, pubDER)},
	}
	require.NoError(t, api.SignUpdateRequest(&req, operatorPrivKey))

	body, err := json.Marshal(req)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	service.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/certificates", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The generator now serves the new chains.
	assert.Len(t, service.handler.generator.CertificateChains(), 1)

	// The resealed envelope landed in storage and unseals to the same
	// chains.
	raw, err := service.store.Load(context.Background(), EnvelopeSlot)
	require.NoError(t, err)
	env, err := interfaces.ParseSealedEnvelope(raw)
	require.NoError(t, err)
	_, chains, err := secrets.Unseal(service.sealer, env)
	require.NoError(t, err)
	require.Len(t, chains, 1)
	assert.True(t, chains[0].Equal(req.CertificateChains[0]))
}

// brokenStore refuses every write, standing in for an unreachable backend.
type brokenStore struct{}

func (brokenStore) Save(ctx context.Context, slot string, envelope []byte) error {
	return errors.New("backend unavailable")
}

func (brokenStore) Load(ctx context.Context, slot string) ([]byte, error) {
	return nil, interfaces.ErrEnvelopeNotFound
}

func (brokenStore) Available(ctx context.Context) bool { return false }
func (brokenStore) Name() string                       { return "broken" }
func (brokenStore) LocationURI() string                { return "broken://" }

func TestHandleCertificateUpdateKeepsChainsOnPersistFailure(t *testing.T) {
	service := newTestService(t)
	service.handler.store = brokenStore{}

	pubDER, err := service.handler.generator.PublicKeyDER()
	require.NoError(t, err)

	req := api.CertificateUpdateRequest{
		CertificateChains: []interfaces.CertificateChain{issueChainFor(t, pubDER)},
	}
	require.NoError(t, api.SignUpdateRequest(&req, operatorPrivKey))

	body, err := json.Marshal(req)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	service.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/certificates", bytes.NewReader(body)))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	// The served chains stay as they were, so a restart from the old
	// envelope agrees with what this instance serves.
	assert.Empty(t, service.handler.generator.CertificateChains())
}

func TestHandleCertificateUpdateRejectsUnauthorizedOperator(t *testing.T) {
	service := newTestService(t)

	pubDER, err := service.handler.generator.PublicKeyDER()
	require.NoError(t, err)

	req := api.CertificateUpdateRequest{
		CertificateChains: []interfaces.CertificateChain{issueChainFor(t, pubDER)},
	}

	// Signed by a key outside the allowlist.
	strangerKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	require.NoError(t, api.SignUpdateRequest(&req, hex.EncodeToString(crypto.FromECDSA(strangerKey))))

	body, err := json.Marshal(req)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	service.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/certificates", bytes.NewReader(body)))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// No endorsement at all.
	req.OperatorSignature = nil
	body, err = json.Marshal(req)
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	service.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/certificates", bytes.NewReader(body)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleCertificateUpdateRejectsForeignKeyChain(t *testing.T) {
	service := newTestService(t)

	otherKey, err := cryptoutils.NewEcdsaP256SigningKey()
	require.NoError(t, err)
	otherVerifying, err := otherKey.VerifyingKey()
	require.NoError(t, err)
	otherDER, err := otherVerifying.SerializeToDER()
	require.NoError(t, err)

	req := api.CertificateUpdateRequest{
		CertificateChains: []interfaces.CertificateChain{issueChainFor(t, otherDER)},
	}
	require.NoError(t, api.SignUpdateRequest(&req, operatorPrivKey))

	body, err := json.Marshal(req)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	service.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/certificates", bytes.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Nothing was persisted for the rejected update.
	_, err = service.store.Load(context.Background(), EnvelopeSlot)
	assert.ErrorIs(t, err, interfaces.ErrEnvelopeNotFound)
}
