package manifest_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/msapi-manager/internal/manifest"
)

func TestManifest(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "manifest suite")
}

func writeFile(t string, contents string) string {
	dir, _ := os.MkdirTemp("", "manifest")
	path := filepath.Join(dir, "apps.json")
	_ = os.WriteFile(path, []byte(contents), 0o644)
	return path
}

var _ = Describe("Load", func() {
	It("parses a valid catalog", func() {
		path := writeFile("", `{"echo": {"type":"worker","bin":"/usr/bin/echo","hasView":false}}`)
		cat, err := manifest.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cat).To(HaveKey("echo"))
		Expect(cat["echo"].Bin).To(Equal("/usr/bin/echo"))
	})

	It("rejects an empty catalog", func() {
		path := writeFile("", `{}`)
		_, err := manifest.Load(path)
		Expect(err).To(HaveOccurred())
	})

	It("rejects an entry with no bin", func() {
		path := writeFile("", `{"echo": {"type":"worker"}}`)
		_, err := manifest.Load(path)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Reload", func() {
	It("flags a brand new app", func() {
		diffs := manifest.Reload(manifest.Catalog{}, manifest.Catalog{"a": {Bin: "/bin/a"}})
		Expect(diffs["a"].IsNew).To(BeTrue())
	})

	It("flags a changed bin path and an unchanged view port separately", func() {
		prev := manifest.Catalog{"a": {Bin: "/bin/a", ViewPortParameter: "port"}}
		next := manifest.Catalog{"a": {Bin: "/bin/a-v2", ViewPortParameter: "port"}}
		diffs := manifest.Reload(prev, next)
		Expect(diffs["a"].BinChanged).To(BeTrue())
		Expect(diffs["a"].ViewPortChanged).To(BeFalse())
	})
})
