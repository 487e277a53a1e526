package assertionhandler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ZacharyEspiritu/tee-assertion-generator/api"
	"github.com/ZacharyEspiritu/tee-assertion-generator/attestation"
)

// Client calls a remote assertion generator service. It implements
// api.AssertionProvider.
//
// The attested route only works through the attested-TLS terminating
// proxy, which verifies this client's hardware attestation and injects
// the measurement headers the server authorizes against; a plain HTTP
// client reaching the server directly is rejected.
type Client struct {
	// BaseURL of the assertion service (e.g. "https://assertions.example.com").
	BaseURL string

	// HTTPClient is used for requests; http.DefaultClient when nil.
	HTTPClient *http.Client
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// GenerateAssertion requests an assertion over payload from the remote
// service.
func (c *Client) GenerateAssertion(payload []byte) (*attestation.Assertion, error) {
	body, err := json.Marshal(api.AssertionRequest{Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("could not serialize assertion request: %w", err)
	}

	resp, err := c.httpClient().Post(c.BaseURL+"/api/attested/assert", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not request assertion: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read assertion response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("assertion request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var assertionResp api.AssertionResponse
	if err := json.Unmarshal(respBody, &assertionResp); err != nil {
		return nil, fmt.Errorf("could not parse assertion response: %w", err)
	}

	return &assertionResp.Assertion, nil
}

// Certification retrieves the certification material for the service's
// attestation key. The caller verifies the quote against the report data
// and the report data against the payload before trusting the key the
// payload carries.
func (c *Client) Certification() (*api.CertificationResponse, error) {
	resp, err := c.httpClient().Get(c.BaseURL + "/api/public/certification")
	if err != nil {
		return nil, fmt.Errorf("could not request certification material: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read certification response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("certification request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var certResp api.CertificationResponse
	if err := json.Unmarshal(respBody, &certResp); err != nil {
		return nil, fmt.Errorf("could not parse certification response: %w", err)
	}

	return &certResp, nil
}

// UpdateCertificates submits an operator-endorsed certificate chain
// update. The request must already carry its endorsement; see
// api.SignUpdateRequest.
func (c *Client) UpdateCertificates(req api.CertificateUpdateRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("could not serialize update request: %w", err)
	}

	resp, err := c.httpClient().Post(c.BaseURL+"/api/admin/certificates", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("could not submit update request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("could not read update response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("update request failed with status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
