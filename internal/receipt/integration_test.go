package receipt_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zombor/receipt-ocr/internal/metrics"
	"github.com/zombor/receipt-ocr/internal/ocr"
	"github.com/zombor/receipt-ocr/internal/receipt"
	"github.com/zombor/receipt-ocr/internal/scanning"
)

var _ = Describe("Integration", func() {
	var (
		db         *receipt.BoltDB
		ollamaFake *ghttp.Server
		api        *httptest.Server
	)

	parse := func(text string) *receipt.Receipt {
		body, err := json.Marshal(map[string]string{"text": text})
		Expect(err).NotTo(HaveOccurred())
		resp, err := http.Post(api.URL+"/api/receipts/parse", "application/json", strings.NewReader(string(body)))
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		var r receipt.Receipt
		Expect(json.NewDecoder(resp.Body).Decode(&r)).To(Succeed())
		return &r
	}

	BeforeEach(func() {
		var err error
		db, err = receipt.NewBoltDB(filepath.Join(GinkgoT().TempDir(), "receipts.db"))
		Expect(err).NotTo(HaveOccurred())

		ollamaFake = ghttp.NewServer()
		ollama, err := scanning.NewOllama(ollamaFake.URL(), "llama3")
		Expect(err).NotTo(HaveOccurred())

		reg := prometheus.NewRegistry()
		pipeline := ocr.NewPipeline(ocr.NewParser(), scanning.WithTimeout(ollama, 0))
		service := receipt.NewService(db, nil, pipeline, metrics.New(reg))
		server := receipt.NewServer(service, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		api = httptest.NewServer(server.Handler())
	})

	AfterEach(func() {
		api.Close()
		ollamaFake.Close()
		db.Close()
	})

	When("the model is available", func() {
		BeforeEach(func() {
			ollamaFake.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/api/chat"),
				ghttp.RespondWith(http.StatusOK, `{"message": {"role": "assistant", "content": "{\"merchant\": \"Montana Restaurant\", \"date\": \"2024-02-01\", \"total\": 18.4}"}, "done": true}`),
			))
		})

		It("should store the assisted parse", func() {
			r := parse("MONTANA RESTAURANT\nTotal 18.40")
			Expect(r.Source).To(Equal(ocr.SourceAssisted))
			Expect(r.Parsed.Total.StringFixed(2)).To(Equal("18.40"))

			stored, err := db.GetReceipt(r.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Parsed.Merchant).To(Equal("Montana Restaurant"))
			Expect(stored.Parsed.Date).To(Equal("2024-02-01"))
		})
	})

	When("the model is down", func() {
		BeforeEach(func() {
			ollamaFake.AppendHandlers(ghttp.RespondWith(http.StatusServiceUnavailable, "loading model"))
		})

		It("should fall back to the heuristic parser", func() {
			r := parse("MONTANA RESTAURANT\n2 Huckleberry Pie")
			Expect(r.Source).To(Equal(ocr.SourceHeuristic))
			Expect(r.AssistError).To(ContainSubstring("status 503"))
			Expect(r.Parsed.Merchant).To(Equal("Montana Restaurant"))
			Expect(r.Parsed.Items).To(HaveLen(1))
		})

		It("should count the fallback", func() {
			parse("MONTANA RESTAURANT")

			resp, err := http.Get(api.URL + "/metrics")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring("receipt_assist_fallbacks_total 1"))
		})
	})

	It("should list, export and delete stored receipts", func() {
		ollamaFake.AllowUnhandledRequests = true
		ollamaFake.UnhandledRequestStatusCode = http.StatusInternalServerError

		first := parse("JOE'S HARDWARE")
		second := parse("Blue Moon Cafe")

		resp, err := http.Get(api.URL + "/api/receipts")
		Expect(err).NotTo(HaveOccurred())
		var list []receipt.Receipt
		Expect(json.NewDecoder(resp.Body).Decode(&list)).To(Succeed())
		resp.Body.Close()
		Expect(list).To(HaveLen(2))

		resp, err = http.Get(api.URL + "/api/receipts/export.csv")
		Expect(err).NotTo(HaveOccurred())
		csvBody, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(string(csvBody)).To(ContainSubstring("JOE'S HARDWARE"))
		Expect(string(csvBody)).To(ContainSubstring("Blue Moon Cafe"))

		req, err := http.NewRequest(http.MethodDelete, api.URL+"/api/receipts/"+first.ID, nil)
		Expect(err).NotTo(HaveOccurred())
		resp, err = http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

		_, err = db.GetReceipt(first.ID)
		Expect(err).To(MatchError(receipt.ErrNotFound))
		_, err = db.GetReceipt(second.ID)
		Expect(err).NotTo(HaveOccurred())
	})
})
