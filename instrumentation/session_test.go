package instrumentation

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tracelab/scopetrace/timing"
)

// Simple test time teller implementation
type testTimeTeller struct {
	currentTimeUS timing.TimeUS
}

func (t *testTimeTeller) CurrentTimeUS() timing.TimeUS {
	return t.currentTimeUS
}

func (t *testTimeTeller) SetCurrentTimeUS(time timing.TimeUS) {
	t.currentTimeUS = time
}

func countEvents(doc string) int {
	return strings.Count(doc, `"ph":"X"`)
}

type failingSink struct{}

func (failingSink) Write([]byte) (int, error) {
	return 0, errors.New("no space left on device")
}

var _ = Describe("Session", func() {
	var (
		timeTeller *testTimeTeller
		session    *Session
		buf        *bytes.Buffer
	)

	BeforeEach(func() {
		timeTeller = &testTimeTeller{}
		session = NewSession().WithTimeTeller(timeTeller)
		buf = &bytes.Buffer{}
	})

	It("should write an empty envelope for begin followed by end", func() {
		Expect(session.BeginWriter("Empty", buf)).To(Succeed())
		Expect(session.End()).To(Succeed())

		Expect(buf.String()).To(Equal(`{"otherData": {},"traceEvents":[]}`))
	})

	It("should report its name and activity", func() {
		Expect(session.Active()).To(BeFalse())

		Expect(session.BeginWriter("Startup", buf)).To(Succeed())
		Expect(session.Active()).To(BeTrue())
		Expect(session.Name()).To(Equal("Startup"))

		Expect(session.End()).To(Succeed())
		Expect(session.Active()).To(BeFalse())
		Expect(session.Name()).To(BeEmpty())
	})

	It("should ignore End when no session is active", func() {
		Expect(session.End()).To(Succeed())
		Expect(session.End()).To(Succeed())
	})

	It("should ignore Record when no session is active", func() {
		err := session.Record(Interval{Name: "Orphan", StartUS: 1, EndUS: 2})

		Expect(err).NotTo(HaveOccurred())
		Expect(buf.Len()).To(Equal(0))
	})

	It("should emit timestamps relative to the session baseline", func() {
		timeTeller.SetCurrentTimeUS(1000)
		Expect(session.BeginWriter("Baseline", buf)).To(Succeed())

		err := session.Record(Interval{
			Name:     "ScopeA",
			StartUS:  1200,
			EndUS:    1500,
			ThreadID: 7,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(session.End()).To(Succeed())

		Expect(buf.String()).To(ContainSubstring(
			`{"dur":300,"cat":"function","name":"ScopeA","ph":"X","pid":0,` +
				`"tid":7,"ts":200}`))
	})

	It("should replace double quotes in names with single quotes", func() {
		Expect(session.BeginWriter("Sanitize", buf)).To(Succeed())

		err := session.Record(Interval{Name: `NameWith"Quote`})
		Expect(err).NotTo(HaveOccurred())
		Expect(session.End()).To(Succeed())

		Expect(buf.String()).NotTo(ContainSubstring(`NameWith\"Quote`))
		Expect(buf.String()).To(ContainSubstring(`"name":"NameWith'Quote"`))
	})

	It("should separate successive events with comma and space", func() {
		Expect(session.BeginWriter("Separator", buf)).To(Succeed())

		Expect(session.Record(Interval{Name: "Outer"})).To(Succeed())
		Expect(session.Record(Interval{Name: "Inner"})).To(Succeed())
		Expect(session.End()).To(Succeed())

		Expect(countEvents(buf.String())).To(Equal(2))
		Expect(buf.String()).To(ContainSubstring("}, {"))
	})

	It("should count events in the current document", func() {
		Expect(session.BeginWriter("Count", buf)).To(Succeed())
		Expect(session.EventCount()).To(Equal(uint32(0)))

		Expect(session.Record(Interval{Name: "A"})).To(Succeed())
		Expect(session.Record(Interval{Name: "B"})).To(Succeed())
		Expect(session.EventCount()).To(Equal(uint32(2)))

		Expect(session.End()).To(Succeed())
		Expect(session.EventCount()).To(Equal(uint32(0)))
	})

	It("should produce a document the JSON parser accepts", func() {
		Expect(session.BeginWriter("Parse", buf)).To(Succeed())
		Expect(session.Record(Interval{Name: "ScopeA", StartUS: 1, EndUS: 4})).
			To(Succeed())
		Expect(session.End()).To(Succeed())

		var doc struct {
			OtherData   map[string]any   `json:"otherData"`
			TraceEvents []map[string]any `json:"traceEvents"`
		}
		Expect(json.Unmarshal(buf.Bytes(), &doc)).To(Succeed())
		Expect(doc.TraceEvents).To(HaveLen(1))
		Expect(doc.TraceEvents[0]["name"]).To(Equal("ScopeA"))
	})

	It("should surface sink failures to the caller", func() {
		err := session.BeginWriter("Broken", failingSink{})

		Expect(err).To(HaveOccurred())
		Expect(session.Active()).To(BeFalse())
	})

	Context("with file-backed sessions", func() {
		var dir string

		BeforeEach(func() {
			dir = GinkgoT().TempDir()
		})

		It("should close the previous document when Begin is called twice", func() {
			path1 := filepath.Join(dir, "trace1.json")
			path2 := filepath.Join(dir, "trace2.json")

			Expect(session.Begin("A", path1)).To(Succeed())
			Expect(session.Record(Interval{Name: "EventA"})).To(Succeed())

			Expect(session.Begin("B", path2)).To(Succeed())
			Expect(session.Record(Interval{Name: "EventB"})).To(Succeed())
			Expect(session.End()).To(Succeed())

			doc1, err := os.ReadFile(path1)
			Expect(err).NotTo(HaveOccurred())
			Expect(countEvents(string(doc1))).To(Equal(1))
			Expect(string(doc1)).To(ContainSubstring(`"name":"EventA"`))
			Expect(string(doc1)).To(HaveSuffix("]}"))

			doc2, err := os.ReadFile(path2)
			Expect(err).NotTo(HaveOccurred())
			Expect(countEvents(string(doc2))).To(Equal(1))
			Expect(string(doc2)).To(ContainSubstring(`"name":"EventB"`))
		})

		It("should truncate an existing file on Begin", func() {
			path := filepath.Join(dir, "trace.json")
			Expect(os.WriteFile(path, []byte("stale content"), 0o644)).
				To(Succeed())

			Expect(session.Begin("Fresh", path)).To(Succeed())
			Expect(session.End()).To(Succeed())

			doc, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(doc)).To(Equal(`{"otherData": {},"traceEvents":[]}`))
		})

		It("should fail Begin when the file cannot be created", func() {
			err := session.Begin("Bad", filepath.Join(dir, "no", "such", "dir.json"))

			Expect(err).To(HaveOccurred())
			Expect(session.Active()).To(BeFalse())
		})
	})
})
