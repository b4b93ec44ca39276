package receipt

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStorage", func() {
	var (
		tmpDir  string
		storage Storage
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		var err error
		storage, err = NewLocalStorage(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Save", func() {
		It("writes the file and returns its path", func() {
			savedPath, err := storage.Save("test.jpg", []byte("image content"))
			Expect(err).NotTo(HaveOccurred())
			Expect(savedPath).To(Equal("test.jpg"))
			Expect(filepath.Join(tmpDir, "test.jpg")).To(BeAnExistingFile())
		})
	})

	Describe("Get", func() {
		It("returns previously saved data", func() {
			_, err := storage.Save("test.jpg", []byte("image content"))
			Expect(err).NotTo(HaveOccurred())

			data, err := storage.Get("test.jpg")
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte("image content")))
		})

		It("errors for a missing file", func() {
			_, err := storage.Get("missing.jpg")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Delete", func() {
		It("removes a saved file", func() {
			_, err := storage.Save("test.jpg", []byte("image content"))
			Expect(err).NotTo(HaveOccurred())

			Expect(storage.Delete("test.jpg")).To(Succeed())
			Expect(filepath.Join(tmpDir, "test.jpg")).NotTo(BeAnExistingFile())
		})

		It("errors for a missing file", func() {
			Expect(storage.Delete("missing.jpg")).NotTo(Succeed())
		})
	})

	When("the base directory cannot be created", func() {
		It("returns an error", func() {
			conflict := filepath.Join(tmpDir, "file")
			_, err := storage.Save("file", []byte("x"))
			Expect(err).NotTo(HaveOccurred())

			_, err = NewLocalStorage(filepath.Join(conflict, "nested"))
			Expect(err).To(HaveOccurred())
		})
	})
})
