package tally

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallybi/tallybi/internal/log"
)

func TestClient_Collection(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		gotBody = string(body)
		io.WriteString(w, `<ENVELOPE><LEDGER NAME="Cash"/></ENVELOPE>`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "Test BI Corp", log.NewNop())
	raw := c.Collection(context.Background(), "Ledger")

	assert.False(t, IsError(raw))
	assert.Contains(t, raw, `LEDGER NAME="Cash"`)

	assert.Contains(t, gotBody, "<TALLYREQUEST>Export</TALLYREQUEST>")
	assert.Contains(t, gotBody, "<TYPE>Collection</TYPE>")
	assert.Contains(t, gotBody, "<ID>Ledger</ID>")
	assert.Contains(t, gotBody, "<SVEXPORTFORMAT>$$SysName:XML</SVEXPORTFORMAT>")
	assert.Contains(t, gotBody, "<SVCURRENTCOMPANY>Test BI Corp</SVCURRENTCOMPANY>")
}

func TestClient_Report(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		io.WriteString(w, `<ENVELOPE></ENVELOPE>`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "Test BI Corp", log.NewNop())

	t.Run("with period", func(t *testing.T) {
		c.Report(context.Background(), "Day Book", "20250701", "20250707")
		assert.Contains(t, gotBody, "<TYPE>Data</TYPE>")
		assert.Contains(t, gotBody, "<ID>Day Book</ID>")
		assert.Contains(t, gotBody, "<SVFROMDATE>20250701</SVFROMDATE>")
		assert.Contains(t, gotBody, "<SVTODATE>20250707</SVTODATE>")
	})

	t.Run("default period omits date vars", func(t *testing.T) {
		c.Report(context.Background(), "Trial Balance", "", "")
		assert.Contains(t, gotBody, "<ID>Trial Balance</ID>")
		assert.NotContains(t, gotBody, "SVFROMDATE")
	})
}

func TestClient_ErrorEnvelopes(t *testing.T) {
	t.Run("connection refused", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := srv.URL
		srv.Close()

		c := NewClient(url, "Test BI Corp", log.NewNop())
		raw := c.Collection(context.Background(), "Ledger")

		require.True(t, IsError(raw))
		assert.Contains(t, raw, "Cannot connect to Tally at "+url)
	})

	t.Run("http error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := NewClient(srv.URL, "Test BI Corp", log.NewNop())
		raw := c.Collection(context.Background(), "Ledger")

		require.True(t, IsError(raw))
		assert.Contains(t, raw, "Tally returned HTTP 500")
	})

	t.Run("error passthrough from tally itself", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "<ENVELOPE><ERROR>Unknown Request, cannot be processed</ERROR></ENVELOPE>")
		}))
		defer srv.Close()

		c := NewClient(srv.URL, "Test BI Corp", log.NewNop())
		raw := c.Collection(context.Background(), "Ledger")
		assert.True(t, IsError(raw))
	})
}
