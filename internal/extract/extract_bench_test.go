package extract

import (
	"strings"
	"testing"
)

// Benchmark field evaluation on listing pages of increasing size.
func BenchmarkFields(b *testing.B) {
	fm := FieldMap{
		"title": "//h2/a[@class='title']/text()",
		"link":  "//h2/a[@class='title']/@href",
		"name":  "//span[@class='authors__name']/text()",
	}
	small := mustParse(b, makeListing(5))
	medium := mustParse(b, makeListing(50))
	large := mustParse(b, makeListing(500))

	b.Run("small", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = Fields(small, fm, true)
		}
	})
	b.Run("medium", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = Fields(medium, fm, true)
		}
	})
	b.Run("large", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = Fields(large, fm, true)
		}
	})
}

func makeListing(items int) string {
	builder := new(strings.Builder)
	builder.WriteString("<html><head><title>results</title></head><body><ol>")
	for i := 0; i < items; i++ {
		builder.WriteString(`<li><h2><a class="title" href="/article/10.1007/x">`)
		builder.WriteString(sampleTitle)
		builder.WriteString(`</a></h2><span class="authors__name">A. Author</span></li>`)
	}
	builder.WriteString("</ol></body></html>")
	return builder.String()
}

const sampleTitle = "Finite element analysis of reinforced concrete beams under cyclic loading"
