package receipt

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/HairyGair/taxhelper/internal/extraction"
)

var _ = Describe("BoltDB", func() {
	var (
		tmpDir string
		dbPath string
		db     *BoltDB
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	Describe("receipts", func() {
		var receipt *Receipt

		BeforeEach(func() {
			date := time.Date(2024, 10, 17, 0, 0, 0, 0, time.UTC)
			total := decimal.NewFromFloat(7.79)
			receipt = &Receipt{
				ID:       "test-id",
				Merchant: "TESCO",
				Date:     &date,
				Total:    &total,
				LineItems: []extraction.LineItem{
					{Description: "MILK", Amount: decimal.NewFromFloat(1.20)},
				},
				Confidence:  extraction.Confidence{Merchant: 100, Date: 100, Amount: 100},
				RawText:     "TESCO STORES\n17/10/2024\nTOTAL £7.79",
				Filename:    "test.jpg",
				ContentType: "image/jpeg",
				CreatedAt:   time.Now().UTC(),
				UpdatedAt:   time.Now().UTC(),
			}
		})

		It("round-trips a receipt", func() {
			Expect(db.SaveReceipt(receipt)).To(Succeed())

			loaded, err := db.GetReceipt("test-id")
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Merchant).To(Equal("TESCO"))
			Expect(loaded.Date.Equal(*receipt.Date)).To(BeTrue())
			Expect(loaded.Total.Equal(*receipt.Total)).To(BeTrue())
			Expect(loaded.Confidence).To(Equal(receipt.Confidence))
			Expect(loaded.LineItems).To(HaveLen(1))
			Expect(loaded.RawText).To(Equal(receipt.RawText))
		})

		It("errors for a missing receipt", func() {
			_, err := db.GetReceipt("missing")
			Expect(err).To(HaveOccurred())
		})

		It("lists saved receipts", func() {
			Expect(db.SaveReceipt(receipt)).To(Succeed())

			receipts, err := db.ListReceipts()
			Expect(err).NotTo(HaveOccurred())
			Expect(receipts).To(HaveLen(1))
		})

		It("returns an empty list when nothing is saved", func() {
			receipts, err := db.ListReceipts()
			Expect(err).NotTo(HaveOccurred())
			Expect(receipts).To(BeEmpty())
			Expect(receipts).NotTo(BeNil())
		})

		It("deletes a receipt", func() {
			Expect(db.SaveReceipt(receipt)).To(Succeed())
			Expect(db.DeleteReceipt("test-id")).To(Succeed())

			_, err := db.GetReceipt("test-id")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("transactions", func() {
		var transaction *Transaction

		BeforeEach(func() {
			transaction = &Transaction{
				ID:          "t-1",
				Date:        time.Date(2024, 10, 17, 0, 0, 0, 0, time.UTC),
				Amount:      decimal.NewFromFloat(-7.79),
				Description: "TESCO STORES 2847",
				CreatedAt:   time.Now().UTC(),
			}
		})

		It("round-trips a transaction", func() {
			Expect(db.SaveTransaction(transaction)).To(Succeed())

			loaded, err := db.GetTransaction("t-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Description).To(Equal("TESCO STORES 2847"))
			Expect(loaded.Amount.Equal(transaction.Amount)).To(BeTrue())
			Expect(loaded.Date.Equal(transaction.Date)).To(BeTrue())
		})

		It("errors for a missing transaction", func() {
			_, err := db.GetTransaction("missing")
			Expect(err).To(HaveOccurred())
		})

		It("lists saved transactions", func() {
			Expect(db.SaveTransaction(transaction)).To(Succeed())

			transactions, err := db.ListTransactions()
			Expect(err).NotTo(HaveOccurred())
			Expect(transactions).To(HaveLen(1))
		})
	})

	When("the database path is not writable", func() {
		It("returns an error", func() {
			_, err := NewBoltDB(filepath.Join(tmpDir, "no", "such", "dir", "db"))
			Expect(err).To(HaveOccurred())
		})
	})
})
