package codeblock_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/prometheux/docschat/pkg/codeblock"
)

var _ = Describe("Extract", func() {
	It("returns fenced regions in order with whitespace trimmed", func() {
		text := "Compute it like this:\n\n```vadalog\n  avg_salary(D, A) :- salary(D, S), A = #avg(S).\n\n```\n\n" +
			"Or in Prolog style:\n```prolog\nfact(1).\n```\nand untagged:\n```\n@output(\"path\").\n```\n"

		blocks := codeblock.Extract(text)

		Expect(blocks).To(HaveLen(3))
		Expect(blocks[0].Code).To(Equal("avg_salary(D, A) :- salary(D, S), A = #avg(S)."))
		Expect(blocks[1].Code).To(Equal("fact(1)."))
		Expect(blocks[2].Code).To(Equal(`@output("path").`))
		for _, b := range blocks {
			Expect(b.Language).To(Equal(codeblock.Language))
			Expect(b.Description).To(Equal(codeblock.Description))
		}
	})

	It("ignores fences tagged with other languages", func() {
		blocks := codeblock.Extract("```python\nprint(1)\n```")
		Expect(blocks).To(BeEmpty())
	})

	It("skips a block in another language without losing the next one", func() {
		text := "SQL equivalent:\n```sql\nSELECT avg(s) FROM t;\n```\nIn Vadalog:\n```vadalog\na(X) :- b(X).\n```\n"

		blocks := codeblock.Extract(text)

		Expect(blocks).To(HaveLen(1))
		Expect(blocks[0].Code).To(Equal("a(X) :- b(X)."))
	})

	It("pairs fences across several foreign blocks", func() {
		text := "```python\nprint(1)\n```\ntext\n```\nfirst.\n```\n```bash\nls\n```\n```prolog\nsecond.\n```"

		blocks := codeblock.Extract(text)

		Expect(blocks).To(HaveLen(2))
		Expect(blocks[0].Code).To(Equal("first."))
		Expect(blocks[1].Code).To(Equal("second."))
	})

	It("ignores an unterminated fence", func() {
		blocks := codeblock.Extract("```vadalog\na(X) :- b(X).\n")
		Expect(blocks).To(BeEmpty())
	})

	It("returns an empty list when there are no fences", func() {
		blocks := codeblock.Extract("Use #avg inside a rule body.")
		Expect(blocks).NotTo(BeNil())
		Expect(blocks).To(BeEmpty())

		raw, err := json.Marshal(blocks)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(raw)).To(Equal("[]"))
	})

	It("serializes with the envelope field names", func() {
		raw, err := json.Marshal(codeblock.Extract("```\nx.\n```"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(raw)).To(Equal(`[{"language":"vadalog","code":"x.","description":"Vadalog code example"}]`))
	})
})
