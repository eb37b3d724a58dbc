package cbr

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/cardvault/card-service/internal/config"
	"github.com/sirupsen/logrus"
)

// Client fetches daily exchange quotes from the Central Bank web service.
// The service itself keeps balances in a single deployment currency; the
// quote endpoint is informational only.
type Client struct {
	url    string
	client *http.Client
	log    *logrus.Logger
}

// NewClient initializes a new CBR client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		url: cfg.CBRURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// buildSOAPRequest creates a SOAP request for the daily currency quotes
func (c *Client) buildSOAPRequest(onDate time.Time) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
		<soap12:Envelope xmlns:soap12="http://www.w3.org/2003/05/soap-envelope">
			<soap12:Body>
				<GetCursOnDate xmlns="http://web.cbr.ru/">
					<On_date>%s</On_date>
				</GetCursOnDate>
			</soap12:Body>
		</soap12:Envelope>`, onDate.Format("2006-01-02"))
}

// sendRequest sends the SOAP request
func (c *Client) sendRequest(soapRequest string) ([]byte, error) {
	req, err := http.NewRequest("POST", c.url, bytes.NewBufferString(soapRequest))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/soap+xml; charset=utf-8")
	req.Header.Set("SOAPAction", "http://web.cbr.ru/GetCursOnDate")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %v", err)
	}

	c.log.Debugf("CBR XML response: %s", string(body))
	return body, nil
}

// parseXMLResponse extracts the quote for the given currency code
func (c *Client) parseXMLResponse(rawBody []byte, code string) (float64, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(rawBody); err != nil {
		return 0, fmt.Errorf("failed to parse XML: %v", err)
	}

	for _, el := range doc.FindElements("//ValuteCursOnDate") {
		chCode := el.FindElement("./VchCode")
		curs := el.FindElement("./Vcurs")
		if chCode == nil || curs == nil {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(chCode.Text()), code) {
			continue
		}

		var rate float64
		if _, err := fmt.Sscanf(strings.TrimSpace(curs.Text()), "%f", &rate); err != nil {
			return 0, fmt.Errorf("failed to parse rate: %v", err)
		}
		return rate, nil
	}
	return 0, fmt.Errorf("no quote found for currency %s", code)
}

// GetDailyRate retrieves today's quote for the given currency code.
func (c *Client) GetDailyRate(code string) (float64, error) {
	body, err := c.sendRequest(c.buildSOAPRequest(time.Now()))
	if err != nil {
		return 0, err
	}

	rate, err := c.parseXMLResponse(body, code)
	if err != nil {
		return 0, err
	}

	c.log.Infof("Retrieved daily rate for %s: %.4f", code, rate)
	return rate, nil
}
