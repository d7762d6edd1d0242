package dian

import (
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cloudfly/dian-service/internal/domain/document"
	"github.com/cloudfly/dian-service/internal/testutil"
)

const acceptedReply = `<?xml version="1.0" encoding="utf-8"?>
<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope">
  <s:Body>
    <SendBillSyncResponse xmlns="http://wcf.dian.colombia">
      <SendBillSyncResult xmlns:b="http://schemas.datacontract.org/2004/07/DianResponse">
        <b:ErrorMessage xmlns:c="http://schemas.microsoft.com/2003/10/Serialization/Arrays"/>
        <b:IsValid>true</b:IsValid>
        <b:StatusCode>00</b:StatusCode>
        <b:StatusDescription>Procesado Correctamente.</b:StatusDescription>
        <b:StatusMessage>La Factura electrónica FE1001, ha sido autorizada.</b:StatusMessage>
        <b:XmlDocumentKey>cufe-123</b:XmlDocumentKey>
      </SendBillSyncResult>
    </SendBillSyncResponse>
  </s:Body>
</s:Envelope>`

const rejectedReply = `<?xml version="1.0" encoding="utf-8"?>
<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope">
  <s:Body>
    <SendBillSyncResponse xmlns="http://wcf.dian.colombia">
      <SendBillSyncResult xmlns:b="http://schemas.datacontract.org/2004/07/DianResponse">
        <b:ErrorMessage xmlns:c="http://schemas.microsoft.com/2003/10/Serialization/Arrays">
          <c:string>Regla: FAD06, Rechazo: Valor del CUFE no está calculado correctamente.</c:string>
          <c:string>Regla: FAJ43b, Rechazo: Nombre informado no corresponde.</c:string>
        </b:ErrorMessage>
        <b:IsValid>false</b:IsValid>
        <b:StatusCode>99</b:StatusCode>
        <b:StatusMessage>Validación contiene errores en campos mandatorios.</b:StatusMessage>
      </SendBillSyncResult>
    </SendBillSyncResponse>
  </s:Body>
</s:Envelope>`

func reply(code, message string) string {
	return `<Envelope><Body><Result><StatusCode>` + code + `</StatusCode><StatusMessage>` +
		message + `</StatusMessage><UUID>conf-1</UUID></Result></Body></Envelope>`
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		TestURL:       srv.URL + "/test",
		ProductionURL: srv.URL + "/prod",
		Timeout:       2 * time.Second,
	}, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return c, srv
}

func testMode(env document.Environment) *document.OperationMode {
	mode := testutil.SampleOperationMode("unused.p12", "")
	mode.Environment = env
	return mode
}

func TestConfig_Validate(t *testing.T) {
	assert.ErrorIs(t, (&Config{ProductionURL: "https://p"}).Validate(), ErrMissingTestURL)
	assert.ErrorIs(t, (&Config{TestURL: "https://t"}).Validate(), ErrMissingProductionURL)
	assert.ErrorIs(t, (&Config{TestURL: "nope", ProductionURL: "https://p"}).Validate(), ErrInvalidURL)
	assert.NoError(t, (&Config{TestURL: "https://t", ProductionURL: "https://p"}).Validate())
}

func TestClient_Endpoint(t *testing.T) {
	c, err := NewClient(Config{TestURL: "https://vpfe-hab.dian.gov.co", ProductionURL: "https://vpfe.dian.gov.co"})
	require.NoError(t, err)

	assert.Equal(t, "https://vpfe-hab.dian.gov.co/wcf/ReceiveInvoice.svc",
		c.Endpoint(document.EnvironmentTest, document.CategoryInvoice))
	assert.Equal(t, "https://vpfe.dian.gov.co/wcf/ReceivePayroll.svc",
		c.Endpoint(document.EnvironmentProduction, document.CategoryPayroll))
}

func TestClient_SubmitInvoiceAccepted(t *testing.T) {
	signed := []byte(`<Invoice><ID>FE1001</ID></Invoice>`)

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/test/wcf/ReceiveInvoice.svc", r.URL.Path)
		assert.Equal(t, "text/xml; charset=utf-8", r.Header.Get("Content-Type"))
		assert.Contains(t, r.Header, "Soapaction")

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		doc := etree.NewDocument()
		require.NoError(t, doc.ReadFromBytes(body))

		op := doc.FindElement("//SendBillSync")
		require.NotNil(t, op)
		assert.Equal(t, NamespaceWCF, op.NamespaceURI())
		assert.True(t, strings.HasSuffix(op.SelectElement("fileName").Text(), ".xml"))
		decoded, err := base64.StdEncoding.DecodeString(op.SelectElement("contentFile").Text())
		require.NoError(t, err)
		assert.Equal(t, signed, decoded)

		_, _ = w.Write([]byte(acceptedReply))
	})

	out := c.Submit(testutil.ContextWithTimeout(t, 5*time.Second), signed, testMode(document.EnvironmentTest), document.CategoryInvoice)
	assert.True(t, out.Accepted)
	assert.False(t, out.TransportFailed)
	assert.Equal(t, "00", out.StatusCode)
	assert.Equal(t, "cufe-123", out.ConfirmationID)
	assert.Empty(t, out.ErrorCode)
	assert.Equal(t, acceptedReply, string(out.RawResponse))
}

func TestClient_SubmitPayrollProduction(t *testing.T) {
	var hits atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/prod/wcf/ReceivePayroll.svc", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "wcf:SendNominaSync")
		_, _ = w.Write([]byte(reply("00", "ok")))
	})

	out := c.Submit(testutil.ContextWithTimeout(t, 5*time.Second), []byte("<NominaIndividual/>"),
		testMode(document.EnvironmentProduction), document.CategoryPayroll)
	assert.True(t, out.Accepted)
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_SubmitRejected(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(rejectedReply))
	})

	out := c.Submit(testutil.ContextWithTimeout(t, 5*time.Second), []byte("<Invoice/>"), testMode(document.EnvironmentTest), document.CategoryInvoice)
	assert.False(t, out.Accepted)
	assert.False(t, out.TransportFailed)
	assert.Equal(t, "99", out.ErrorCode)
	assert.Contains(t, out.ErrorMessage, "Validación contiene errores")
	assert.Contains(t, out.ErrorMessage, "FAD06")
	assert.Contains(t, out.ErrorMessage, "FAJ43b")
}

func TestReply_AcceptanceRule(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		message string
		want    bool
	}{
		{"success code with any message", "00", "anything at all", true},
		{"success code with empty message", "00", "", true},
		{"legacy phrase with other code", "66", LegacySuccessMessage, true},
		{"other code and other message", "99", "Documento con errores", false},
		{"phrase with trailing period", "99", LegacySuccessMessage + ".", false},
		{"code padded", "000", "x", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParseReply([]byte(reply(tt.code, tt.message)))
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.Accepted())
			assert.Equal(t, tt.want, r.Outcome(nil).Accepted)
		})
	}
}

func TestClient_TransportFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		code    string
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(reply("00", "ok")))
			},
			code: document.CodeConnectionError,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<<<not xml"))
			},
			code: document.CodeParseError,
		},
		{
			name: "no status elements",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<Envelope><Body/></Envelope>"))
			},
			code: document.CodeParseError,
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-time.After(3 * time.Second):
				case <-r.Context().Done():
				}
			},
			code: document.CodeConnectionError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, tt.handler)
			c.httpClient.Timeout = 200 * time.Millisecond

			out := c.Submit(testutil.ContextWithTimeout(t, 5*time.Second), []byte("<Invoice/>"), testMode(document.EnvironmentTest), document.CategoryInvoice)
			assert.False(t, out.Accepted)
			assert.True(t, out.TransportFailed)
			assert.Equal(t, tt.code, out.ErrorCode)
			assert.NotEmpty(t, out.ErrorMessage)
		})
	}
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(Config{TestURL: url, ProductionURL: url, Timeout: time.Second})
	require.NoError(t, err)

	out := c.Submit(testutil.ContextWithTimeout(t, 5*time.Second), []byte("<Invoice/>"), nil, document.CategoryInvoice)
	assert.True(t, out.TransportFailed)
	assert.Equal(t, document.CodeConnectionError, out.ErrorCode)
}

func TestParseReply_FallbackElements(t *testing.T) {
	r, err := ParseReply([]byte(acceptedReply))
	require.NoError(t, err)
	assert.Equal(t, "cufe-123", r.ConfirmationID)
	assert.Contains(t, r.StatusMessage, "autorizada")

	r, err = ParseReply([]byte(`<R><StatusCode>99</StatusCode><StatusDescription>desc</StatusDescription></R>`))
	require.NoError(t, err)
	assert.Equal(t, "desc", r.StatusMessage)
	assert.Equal(t, "99", r.Outcome(nil).ErrorCode)

	r, err = ParseReply([]byte(`<R><StatusMessage>only message</StatusMessage></R>`))
	require.NoError(t, err)
	assert.Equal(t, document.ErrBusinessRejection.Code, r.Outcome(nil).ErrorCode)
}
