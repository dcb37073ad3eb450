package httpapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/msapi-manager/internal/engine"
	"github.com/nabbar/msapi-manager/internal/httpapi"
	"github.com/nabbar/msapi-manager/internal/manifest"
	"github.com/nabbar/msapi-manager/internal/supervisor"
)

func TestHTTPAPI(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "httpapi suite")
}

var _ = Describe("Router", func() {
	It("lists the installed apps catalog", func() {
		eng := engine.New(nil, supervisor.New(""), nil, manifest.Catalog{
			"echo": {Type: "worker", Bin: "/bin/echo"},
		})
		r := httpapi.Router(nil, eng, "", nil)

		req := httptest.NewRequest(http.MethodGet, "/api/apps/installed", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusOK))
		var out map[string]manifest.App
		Expect(json.Unmarshal(rec.Body.Bytes(), &out)).To(Succeed())
		Expect(out).To(HaveKey("echo"))
	})

	It("reports an unknown app type as status false with HTTP 200", func() {
		eng := engine.New(nil, supervisor.New(""), nil, manifest.Catalog{})
		r := httpapi.Router(nil, eng, "", nil)

		body, _ := json.Marshal(map[string]string{"type": "nope"})
		req := httptest.NewRequest(http.MethodPost, "/api/apps", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusOK))
		var out map[string]any
		Expect(json.Unmarshal(rec.Body.Bytes(), &out)).To(Succeed())
		Expect(out["status"]).To(Equal(false))
	})

	It("rejects modify with an empty body", func() {
		eng := engine.New(nil, supervisor.New(""), nil, manifest.Catalog{})
		r := httpapi.Router(nil, eng, "", nil)

		req := httptest.NewRequest(http.MethodPatch, "/api/apps/9000", bytes.NewReader([]byte(`{}`)))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusOK))
		var out map[string]any
		Expect(json.Unmarshal(rec.Body.Bytes(), &out)).To(Succeed())
		Expect(out["status"]).To(Equal(false))
	})
})
