package tally

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tallybi/tallybi/internal/log"
)

// RequestTimeout bounds every Tally HTTP exchange. Timeout is the only
// cancellation mechanism for an in-flight export.
const RequestTimeout = 30 * time.Second

// Client sends export requests to a Tally Prime instance.
//
// Every failure mode (timeout, connection refused, HTTP error, read error)
// is returned as a well-formed <ENVELOPE><ERROR>...</ERROR></ENVELOPE>
// payload instead of a Go error, so downstream code has exactly one failure
// representation to check regardless of cause.
type Client struct {
	url     string
	company string
	http    *http.Client
	logger  log.Logger
}

// NewClient creates a Client for the given Tally endpoint and company.
func NewClient(url, company string, logger log.Logger) *Client {
	return &Client{
		url:     url,
		company: company,
		http:    &http.Client{Timeout: RequestTimeout},
		logger:  logger,
	}
}

// URL returns the configured Tally endpoint.
func (c *Client) URL() string { return c.url }

// IsError reports whether a Tally response payload carries the in-band
// error marker, either synthesized locally or returned by Tally itself.
func IsError(raw string) bool {
	return strings.Contains(raw, "<ERROR>")
}

func errEnvelope(msg string) string {
	return "<ENVELOPE><ERROR>" + msg + "</ERROR></ENVELOPE>"
}

// Collection exports a built-in Tally collection: Ledger, Group, StockItem.
func (c *Client) Collection(ctx context.Context, collectionType string) string {
	payload := fmt.Sprintf(`<ENVELOPE>
    <HEADER>
        <VERSION>1</VERSION>
        <TALLYREQUEST>Export</TALLYREQUEST>
        <TYPE>Collection</TYPE>
        <ID>%s</ID>
    </HEADER>
    <BODY>
        <DESC>
            <STATICVARIABLES>
                <SVEXPORTFORMAT>$$SysName:XML</SVEXPORTFORMAT>
                <SVCURRENTCOMPANY>%s</SVCURRENTCOMPANY>
            </STATICVARIABLES>
        </DESC>
    </BODY>
</ENVELOPE>`, collectionType, c.company)
	return c.request(ctx, payload)
}

// Report exports a standard Tally report: Trial Balance, Day Book,
// Profit and Loss, Balance Sheet. from and to are inclusive YYYYMMDD bounds;
// both empty means the report's default period.
func (c *Client) Report(ctx context.Context, reportName, from, to string) string {
	dateVars := ""
	if from != "" && to != "" {
		dateVars = fmt.Sprintf("<SVFROMDATE>%s</SVFROMDATE><SVTODATE>%s</SVTODATE>", from, to)
	}
	payload := fmt.Sprintf(`<ENVELOPE>
    <HEADER>
        <VERSION>1</VERSION>
        <TALLYREQUEST>Export</TALLYREQUEST>
        <TYPE>Data</TYPE>
        <ID>%s</ID>
    </HEADER>
    <BODY>
        <DESC>
            <STATICVARIABLES>
                <SVEXPORTFORMAT>$$SysName:XML</SVEXPORTFORMAT>
                <SVCURRENTCOMPANY>%s</SVCURRENTCOMPANY>
                %s
            </STATICVARIABLES>
        </DESC>
    </BODY>
</ENVELOPE>`, reportName, c.company, dateVars)
	return c.request(ctx, payload)
}

// request posts an XML payload and reads the full response body. Large
// companies produce responses well past 100KB, so the body is streamed
// rather than buffered by the transport.
func (c *Client) request(ctx context.Context, payload string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(payload))
	if err != nil {
		return errEnvelope(err.Error())
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")

	resp, err := c.http.Do(req)
	if err != nil {
		return errEnvelope(c.describeTransportError(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errEnvelope(fmt.Sprintf("Tally returned HTTP %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errEnvelope(err.Error())
	}
	return string(body)
}

// describeTransportError maps the three transport failure modes to the
// messages the rest of the system (and its operators) expect.
func (c *Client) describeTransportError(err error) string {
	var netErr net.Error
	switch {
	case errors.As(err, &netErr) && netErr.Timeout():
		c.logger.Warn("tally request timed out", "url", c.url)
		return "Tally request timed out"
	case isConnectionError(err):
		c.logger.Warn("tally unreachable", "url", c.url)
		return "Cannot connect to Tally at " + c.url
	default:
		c.logger.Warn("tally request failed", "url", c.url, "error", err)
		return err.Error()
	}
}

func isConnectionError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
