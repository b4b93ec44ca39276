package receipt

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/HairyGair/taxhelper/internal/extraction"
)

func uploadRequest(filename string, data []byte) *http.Request {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	Expect(err).NotTo(HaveOccurred())
	_, err = part.Write(data)
	Expect(err).NotTo(HaveOccurred())
	Expect(writer.Close()).NotTo(HaveOccurred())

	req := httptest.NewRequest("POST", "/api/receipts", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

var _ = Describe("Server", func() {
	var (
		db      *mockDB
		engine  *mockEngine
		storage *mockStorage
		server  *Server
		rec     *httptest.ResponseRecorder
	)

	BeforeEach(func() {
		db = newMockDB()
		engine = &mockEngine{text: "TESCO STORES\n17/10/2024\nTOTAL £7.79"}
		storage = newMockStorage()
		now := time.Date(2024, 11, 1, 12, 0, 0, 0, time.UTC)
		timeSource := &fixedTimeSource{now: now}
		extractor := extraction.NewExtractorWithDeps(extraction.UKMerchants, timeSource)
		service := NewServiceWithDeps(db, engine, storage, extractor, &sequenceIDGenerator{}, timeSource)
		server = NewServer(service, BasicAuth{})
		rec = httptest.NewRecorder()
	})

	Describe("POST /api/receipts", func() {
		It("uploads, extracts and returns the receipt", func() {
			server.ServeHTTP(rec, uploadRequest("photo.jpg", []byte("image data")))
			Expect(rec.Code).To(Equal(http.StatusCreated))

			var receipt Receipt
			Expect(json.Unmarshal(rec.Body.Bytes(), &receipt)).To(Succeed())
			Expect(receipt.ID).To(Equal("id-1"))
			Expect(receipt.Merchant).To(Equal("TESCO"))
			Expect(receipt.Confidence.Merchant).To(Equal(100))
		})

		It("rejects a request without a file", func() {
			req := httptest.NewRequest("POST", "/api/receipts", strings.NewReader("not a form"))
			req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
			server.ServeHTTP(rec, req)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("reports recognition failures", func() {
			engine.scanErr = http.ErrHandlerTimeout
			server.ServeHTTP(rec, uploadRequest("photo.jpg", []byte("image data")))
			Expect(rec.Code).To(Equal(http.StatusBadRequest))

			var body map[string]string
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body).To(HaveKey("error"))
		})
	})

	Describe("GET /api/receipts", func() {
		It("lists receipts", func() {
			server.ServeHTTP(httptest.NewRecorder(), uploadRequest("photo.jpg", []byte("data")))

			server.ServeHTTP(rec, httptest.NewRequest("GET", "/api/receipts", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))

			var receipts []Receipt
			Expect(json.Unmarshal(rec.Body.Bytes(), &receipts)).To(Succeed())
			Expect(receipts).To(HaveLen(1))
		})
	})

	Describe("GET /api/receipts/{id}", func() {
		It("returns a stored receipt", func() {
			server.ServeHTTP(httptest.NewRecorder(), uploadRequest("photo.jpg", []byte("data")))

			server.ServeHTTP(rec, httptest.NewRequest("GET", "/api/receipts/id-1", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))
		})

		It("404s for a missing receipt", func() {
			server.ServeHTTP(rec, httptest.NewRequest("GET", "/api/receipts/missing", nil))
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("GET /api/receipts/{id}/file", func() {
		It("returns the original image", func() {
			server.ServeHTTP(httptest.NewRecorder(), uploadRequest("photo.jpg", []byte("image data")))

			server.ServeHTTP(rec, httptest.NewRequest("GET", "/api/receipts/id-1/file", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.Bytes()).To(Equal([]byte("image data")))
		})
	})

	Describe("DELETE /api/receipts/{id}", func() {
		It("deletes a receipt", func() {
			server.ServeHTTP(httptest.NewRecorder(), uploadRequest("photo.jpg", []byte("data")))

			server.ServeHTTP(rec, httptest.NewRequest("DELETE", "/api/receipts/id-1", nil))
			Expect(rec.Code).To(Equal(http.StatusNoContent))
			Expect(db.receipts).To(BeEmpty())
		})
	})

	Describe("POST /api/receipts/{id}/corrections", func() {
		BeforeEach(func() {
			server.ServeHTTP(httptest.NewRecorder(), uploadRequest("photo.jpg", []byte("data")))
		})

		It("applies corrections and bumps confidence to 100", func() {
			body := strings.NewReader(`{"merchant": "TESCO EXPRESS", "total": 8.49}`)
			server.ServeHTTP(rec, httptest.NewRequest("POST", "/api/receipts/id-1/corrections", body))
			Expect(rec.Code).To(Equal(http.StatusOK))

			var receipt Receipt
			Expect(json.Unmarshal(rec.Body.Bytes(), &receipt)).To(Succeed())
			Expect(receipt.Merchant).To(Equal("TESCO EXPRESS"))
			Expect(receipt.Total.String()).To(Equal("8.49"))
			Expect(receipt.Confidence.Merchant).To(Equal(100))
			Expect(receipt.Confidence.Amount).To(Equal(100))
		})

		It("rejects a malformed date", func() {
			body := strings.NewReader(`{"date": "17/10/2024"}`)
			server.ServeHTTP(rec, httptest.NewRequest("POST", "/api/receipts/id-1/corrections", body))
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("transactions and matching", func() {
		importBody := `{"transactions": [
			{"id": "t-1", "date": "2024-10-17", "amount": -7.79, "description": "TESCO STORES 2847"},
			{"id": "t-2", "date": "2024-10-01", "amount": -7.79, "description": "COSTA"}
		]}`

		BeforeEach(func() {
			server.ServeHTTP(httptest.NewRecorder(), uploadRequest("photo.jpg", []byte("data")))
		})

		It("imports transactions", func() {
			server.ServeHTTP(rec, httptest.NewRequest("POST", "/api/transactions", strings.NewReader(importBody)))
			Expect(rec.Code).To(Equal(http.StatusCreated))
			Expect(db.transactions).To(HaveLen(2))
		})

		It("rejects a transaction with a malformed date", func() {
			body := `{"transactions": [{"id": "t-1", "date": "17/10/2024", "amount": -7.79, "description": "TESCO"}]}`
			server.ServeHTTP(rec, httptest.NewRequest("POST", "/api/transactions", strings.NewReader(body)))
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("lists transactions", func() {
			server.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/transactions", strings.NewReader(importBody)))

			server.ServeHTTP(rec, httptest.NewRequest("GET", "/api/transactions", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))

			var transactions []Transaction
			Expect(json.Unmarshal(rec.Body.Bytes(), &transactions)).To(Succeed())
			Expect(transactions).To(HaveLen(2))
		})

		It("matches a single receipt", func() {
			server.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/transactions", strings.NewReader(importBody)))

			server.ServeHTTP(rec, httptest.NewRequest("POST", "/api/receipts/id-1/match", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))

			var result struct {
				Matched       bool     `json:"matched"`
				TransactionID string   `json:"transaction_id"`
				Confidence    int      `json:"confidence"`
				Reasons       []string `json:"reasons"`
			}
			Expect(json.Unmarshal(rec.Body.Bytes(), &result)).To(Succeed())
			Expect(result.Matched).To(BeTrue())
			Expect(result.TransactionID).To(Equal("t-1"))
			Expect(result.Confidence).To(Equal(100))
			Expect(result.Reasons).To(HaveLen(3))
		})

		It("runs a batch match", func() {
			server.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/transactions", strings.NewReader(importBody)))

			server.ServeHTTP(rec, httptest.NewRequest("POST", "/api/matches", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))

			var results map[string]struct {
				Matched bool `json:"matched"`
			}
			Expect(json.Unmarshal(rec.Body.Bytes(), &results)).To(Succeed())
			Expect(results).To(HaveKey("id-1"))
			Expect(results["id-1"].Matched).To(BeTrue())
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			service := NewServiceWithDeps(db, engine, storage,
				extraction.NewExtractor(), &sequenceIDGenerator{}, &fixedTimeSource{now: time.Now()})
			server = NewServer(service, BasicAuth{Username: "user", Password: "pass"})
		})

		It("rejects unauthenticated requests", func() {
			server.ServeHTTP(rec, httptest.NewRequest("GET", "/api/receipts", nil))
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(rec.Header().Get("WWW-Authenticate")).To(ContainSubstring("Basic"))
		})

		It("rejects bad credentials", func() {
			req := httptest.NewRequest("GET", "/api/receipts", nil)
			req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("user:wrong")))
			server.ServeHTTP(rec, req)
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})

		It("accepts valid credentials", func() {
			req := httptest.NewRequest("GET", "/api/receipts", nil)
			req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("user:pass")))
			server.ServeHTTP(rec, req)
			Expect(rec.Code).To(Equal(http.StatusOK))
		})
	})
})
