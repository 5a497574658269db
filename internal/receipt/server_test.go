package receipt

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zombor/receipt-ocr/internal/metrics"
	"github.com/zombor/receipt-ocr/internal/ocr"
	"github.com/zombor/receipt-ocr/internal/scanning"
)

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		scanner     *mockScanner
		service     *Service
		server      *Server
		ghttpServer *ghttp.Server
	)

	do := func(method, path string, body io.Reader, contentType string) *http.Response {
		ghttpServer.AppendHandlers(server.ServeHTTP)
		req, err := http.NewRequest(method, ghttpServer.URL()+path, body)
		Expect(err).NotTo(HaveOccurred())
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(resp.Body.Close)
		return resp
	}

	decodeError := func(resp *http.Response) string {
		var body map[string]string
		Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
		return body["error"]
	}

	upload := func(filename string, partType string, data []byte) *http.Response {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		if partType != "" {
			h.Set("Content-Type", partType)
		}
		part, err := mw.CreatePart(h)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(mw.Close()).To(Succeed())
		return do(http.MethodPost, "/api/receipts", &buf, mw.FormDataContentType())
	}

	BeforeEach(func() {
		db = newMockDB()
		scanner = newMockScanner()
		idGen := &mockIDGenerator{ids: []string{"test-id-1", "test-id-2"}}
		service = NewServiceWithDeps(db, scanner, newTestPipeline(nil), nil, idGen, &mockTimeSource{now: fixedNow})
		server = NewServerWithMux(service, nil, http.NewServeMux())
		ghttpServer = ghttp.NewServer()
	})

	AfterEach(func() {
		ghttpServer.Close()
	})

	Describe("CORS", func() {
		It("should answer preflight requests", func() {
			resp := do(http.MethodOptions, "/api/receipts", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})

		It("should set headers on error responses", func() {
			resp := do(http.MethodGet, "/api/receipts/missing", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})

		It("should return a request ID", func() {
			resp := do(http.MethodGet, "/healthz", nil, "")
			Expect(resp.Header.Get("X-Request-ID")).NotTo(BeEmpty())
		})
	})

	Describe("handleParseText", func() {
		When("the body has text", func() {
			It("should return the parsed receipt", func() {
				resp := do(http.MethodPost, "/api/receipts/parse",
					strings.NewReader(`{"text": "MONTANA RESTAURANT\n2 Huckleberry Pie"}`), "application/json")
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))

				var receipt Receipt
				Expect(json.NewDecoder(resp.Body).Decode(&receipt)).To(Succeed())
				Expect(receipt.ID).To(Equal("test-id-1"))
				Expect(receipt.Source).To(Equal(ocr.SourceHeuristic))
				Expect(receipt.Parsed.Merchant).To(Equal("Montana Restaurant"))
				Expect(receipt.Parsed.Items).To(HaveLen(1))
			})
		})

		When("the text is missing", func() {
			It("should return Bad Request", func() {
				resp := do(http.MethodPost, "/api/receipts/parse", strings.NewReader(`{}`), "application/json")
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(decodeError(resp)).To(Equal("text is required"))
			})
		})

		When("the body is not JSON", func() {
			It("should return Bad Request", func() {
				resp := do(http.MethodPost, "/api/receipts/parse", strings.NewReader(`text=hello`), "application/x-www-form-urlencoded")
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(decodeError(resp)).To(Equal("Invalid request body"))
			})
		})

		When("saving fails", func() {
			BeforeEach(func() {
				db.saveErr = errors.New("disk full")
			})

			It("should return Internal Server Error", func() {
				resp := do(http.MethodPost, "/api/receipts/parse", strings.NewReader(`{"text": "x"}`), "application/json")
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
			})
		})
	})

	Describe("handleUploadReceipt", func() {
		When("the upload is valid", func() {
			It("should scan and parse the file", func() {
				resp := upload("receipt.jpg", "image/jpeg", []byte("fake image"))
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))

				var receipt Receipt
				Expect(json.NewDecoder(resp.Body).Decode(&receipt)).To(Succeed())
				Expect(receipt.Parsed.Merchant).To(Equal("Blue Moon Cafe"))
				Expect(receipt.Filename).To(Equal("receipt.jpg"))
			})
		})

		When("the part has no content type", func() {
			It("should infer it from the extension", func() {
				resp := upload("scan.PDF", "", []byte("%PDF-1.4"))
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
				Expect(scanner.contentType).To(Equal("application/pdf"))
			})
		})

		When("no file is provided", func() {
			It("should return Bad Request", func() {
				var buf bytes.Buffer
				mw := multipart.NewWriter(&buf)
				Expect(mw.WriteField("note", "hello")).To(Succeed())
				Expect(mw.Close()).To(Succeed())

				resp := do(http.MethodPost, "/api/receipts", &buf, mw.FormDataContentType())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(decodeError(resp)).To(ContainSubstring("No file was selected"))
			})
		})

		When("the file is empty", func() {
			It("should return Bad Request", func() {
				resp := upload("receipt.jpg", "image/jpeg", nil)
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})

		When("the format is not supported", func() {
			BeforeEach(func() {
				scanner.err = scanning.ErrUnsupportedFormat
			})

			It("should return Bad Request", func() {
				resp := upload("receipt.txt", "text/plain", []byte("hello"))
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})

		When("the scanner fails", func() {
			BeforeEach(func() {
				scanner.err = errors.New("upstream timeout")
			})

			It("should return Bad Gateway", func() {
				resp := upload("receipt.jpg", "image/jpeg", []byte("fake image"))
				Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))
				Expect(decodeError(resp)).To(ContainSubstring("upstream timeout"))
			})
		})

		When("no scanner is configured", func() {
			BeforeEach(func() {
				service = NewServiceWithDeps(db, nil, newTestPipeline(nil), nil, &mockIDGenerator{}, &mockTimeSource{now: fixedNow})
				server = NewServerWithMux(service, nil, http.NewServeMux())
			})

			It("should return Not Implemented", func() {
				resp := upload("receipt.jpg", "image/jpeg", []byte("fake image"))
				Expect(resp.StatusCode).To(Equal(http.StatusNotImplemented))
			})
		})
	})

	Describe("handleListReceipts", func() {
		When("no receipts exist", func() {
			It("should return an empty JSON array", func() {
				resp := do(http.MethodGet, "/api/receipts", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(strings.TrimSpace(string(body))).To(Equal("[]"))
			})
		})

		When("receipts exist", func() {
			BeforeEach(func() {
				db.receipts["test-id"] = &Receipt{ID: "test-id", Parsed: &ocr.ParsedReceipt{Merchant: "Walmart"}}
			})

			It("should return them", func() {
				resp := do(http.MethodGet, "/api/receipts", nil, "")
				var receipts []Receipt
				Expect(json.NewDecoder(resp.Body).Decode(&receipts)).To(Succeed())
				Expect(receipts).To(HaveLen(1))
				Expect(receipts[0].Parsed.Merchant).To(Equal("Walmart"))
			})
		})

		When("the database fails", func() {
			BeforeEach(func() {
				db.listErr = errors.New("db closed")
			})

			It("should return Internal Server Error", func() {
				resp := do(http.MethodGet, "/api/receipts", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
				Expect(decodeError(resp)).To(Equal("Internal server error"))
			})
		})
	})

	Describe("handleGetReceipt", func() {
		BeforeEach(func() {
			db.receipts["test-id"] = &Receipt{ID: "test-id", Parsed: &ocr.ParsedReceipt{Merchant: "Walmart"}}
		})

		It("should return the receipt", func() {
			resp := do(http.MethodGet, "/api/receipts/test-id", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var receipt Receipt
			Expect(json.NewDecoder(resp.Body).Decode(&receipt)).To(Succeed())
			Expect(receipt.ID).To(Equal("test-id"))
		})

		It("should return Not Found for missing receipts", func() {
			resp := do(http.MethodGet, "/api/receipts/missing", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			Expect(decodeError(resp)).To(Equal("Receipt not found"))
		})

		When("the database fails", func() {
			BeforeEach(func() {
				db.getErr = errors.New("db closed")
			})

			It("should return Internal Server Error", func() {
				resp := do(http.MethodGet, "/api/receipts/test-id", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
			})
		})
	})

	Describe("handleReparseReceipt", func() {
		BeforeEach(func() {
			db.receipts["test-id"] = &Receipt{ID: "test-id", OCRText: "JOE'S HARDWARE", CreatedAt: fixedNow}
		})

		It("should parse the stored text again", func() {
			resp := do(http.MethodPost, "/api/receipts/test-id/reparse", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var receipt Receipt
			Expect(json.NewDecoder(resp.Body).Decode(&receipt)).To(Succeed())
			Expect(receipt.Parsed.Merchant).To(Equal("JOE'S HARDWARE"))
		})

		It("should return Not Found for missing receipts", func() {
			resp := do(http.MethodPost, "/api/receipts/missing/reparse", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("handleDeleteReceipt", func() {
		BeforeEach(func() {
			db.receipts["test-id"] = &Receipt{ID: "test-id"}
		})

		It("should return No Content", func() {
			resp := do(http.MethodDelete, "/api/receipts/test-id", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(db.receipts).NotTo(HaveKey("test-id"))
		})

		It("should return Not Found for missing receipts", func() {
			resp := do(http.MethodDelete, "/api/receipts/missing", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("handleExportCSV", func() {
		BeforeEach(func() {
			db.receipts["test-id"] = &Receipt{ID: "test-id", Source: ocr.SourceHeuristic, Parsed: ocr.Parse("")}
		})

		It("should return CSV", func() {
			resp := do(http.MethodGet, "/api/receipts/export.csv", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(HavePrefix("text/csv"))
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(HavePrefix("id,created_at,source,merchant"))
			Expect(string(body)).To(ContainSubstring("test-id"))
		})
	})

	Describe("handleHealth", func() {
		It("should return ok", func() {
			resp := do(http.MethodGet, "/healthz", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})

	Describe("metrics", func() {
		When("no metrics handler is configured", func() {
			It("should not serve /metrics", func() {
				resp := do(http.MethodGet, "/metrics", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			})
		})

		When("a metrics handler is configured", func() {
			BeforeEach(func() {
				reg := prometheus.NewRegistry()
				service = NewServiceWithDeps(db, scanner, newTestPipeline(nil), metrics.New(reg), &mockIDGenerator{}, &mockTimeSource{now: fixedNow})
				server = NewServerWithMux(service, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), http.NewServeMux())
			})

			It("should expose parse counters", func() {
				do(http.MethodPost, "/api/receipts/parse", strings.NewReader(`{"text": "Corner Shop"}`), "application/json")

				resp := do(http.MethodGet, "/metrics", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(body)).To(ContainSubstring(`receipt_parses_total{source="heuristic"} 1`))
			})
		})
	})
})
