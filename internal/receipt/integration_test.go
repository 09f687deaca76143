package receipt_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/recipify/internal/extraction"
	"github.com/zombor/recipify/internal/receipt"
)

const cafeteriaOCR = `
    Campus Cafeteria
    Order Type: Dine-in
    OrderStatus: Completed

    Burger 2 X 8.99
    Fries 1 X 2.99
    Soda 1 X 1.99

    Total (INR) = 22.96

    03/15/24
    12:30
    `

// stubScanner returns fixed OCR text for any image
type stubScanner struct {
	text string
}

func (s *stubScanner) ScanText(imageData []byte, contentType string) (string, error) {
	return s.text, nil
}

func (s *stubScanner) Close() error {
	return nil
}

var _ = Describe("Integration", func() {
	var (
		db       receipt.DB
		store    receipt.Storage
		server   *receipt.Server
		ghServer *ghttp.Server
	)

	BeforeEach(func() {
		tempDir := GinkgoT().TempDir()

		var err error
		db, err = receipt.NewBoltDB(filepath.Join(tempDir, "test.db"))
		Expect(err).NotTo(HaveOccurred())

		store, err = receipt.NewLocalStorage(filepath.Join(tempDir, "receipts"))
		Expect(err).NotTo(HaveOccurred())

		service := receipt.NewService(db, &stubScanner{text: cafeteriaOCR}, store)
		server = receipt.NewServer(service, receipt.BasicAuth{})

		ghServer = ghttp.NewServer()
	})

	AfterEach(func() {
		if ghServer != nil {
			ghServer.Close()
		}
		if db != nil {
			db.Close()
		}
	})

	It("should scan a receipt, save it and export it", func() {
		ghServer.AppendHandlers(
			server.ServeHTTP, // scan
			server.ServeHTTP, // save
			server.ServeHTTP, // export
		)

		// --- Step 1: Scan Request ---
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, err := writer.CreateFormFile("file", "receipt.pdf")
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write([]byte("%PDF-1.4 ... fake pdf content ..."))
		Expect(err).NotTo(HaveOccurred())
		Expect(writer.Close()).To(Succeed())

		resp, err := http.Post(ghServer.URL()+"/api/receipts/scan", writer.FormDataContentType(), body)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var scanned receipt.Receipt
		respBody, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(json.Unmarshal(respBody, &scanned)).To(Succeed())

		Expect(scanned.Kind).To(Equal(extraction.Cafeteria))
		Expect(scanned.Vendor).To(Equal("Cafeteria"))
		Expect(scanned.Total.StringFixed(2)).To(Equal("22.96"))
		Expect(scanned.Time).To(Equal("12:30"))
		Expect(scanned.Items).To(HaveLen(3))
		Expect(scanned.Metadata).To(HaveKeyWithValue("order_type", "Dine-in"))
		Expect(scanned.ContentType).To(Equal("application/pdf"))

		// Verify file is in storage but the receipt is not saved yet
		_, err = store.Get(scanned.Filename)
		Expect(err).NotTo(HaveOccurred())
		_, err = db.GetReceipt(scanned.ID)
		Expect(err).To(MatchError(receipt.ErrNotFound))

		// --- Step 2: Save the reviewed receipt ---
		scanned.Items = scanned.Items[:2]
		saveBody, err := json.Marshal(scanned)
		Expect(err).NotTo(HaveOccurred())

		saveResp, err := http.Post(ghServer.URL()+"/api/receipts", "application/json", bytes.NewReader(saveBody))
		Expect(err).NotTo(HaveOccurred())
		defer saveResp.Body.Close()
		Expect(saveResp.StatusCode).To(Equal(http.StatusCreated))

		saved, err := db.GetReceipt(scanned.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(saved.Items).To(HaveLen(2))
		Expect(saved.Filename).To(Equal(scanned.Filename))

		// --- Step 3: Export ---
		exportResp, err := http.Get(ghServer.URL() + "/api/export.csv")
		Expect(err).NotTo(HaveOccurred())
		defer exportResp.Body.Close()
		Expect(exportResp.StatusCode).To(Equal(http.StatusOK))

		csvBody, err := io.ReadAll(exportResp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(csvBody)).To(ContainSubstring(scanned.ID + ",Cafeteria,,12:30,22.96"))
	})
})
