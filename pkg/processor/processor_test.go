package processor_test

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/seerah/internal/models"
	"github.com/xhad/seerah/pkg/processor"
)

func sentences(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("Sentence number %d tells of the caravan that crossed the desert toward Syria", i)
	}
	return strings.Join(parts, ". ")
}

// overlap returns the length of the longest prefix of next that is also a suffix of prev.
func overlap(prev, next string) int {
	max := len(next)
	if len(prev) < max {
		max = len(prev)
	}
	for k := max; k > 0; k-- {
		if strings.HasSuffix(prev, next[:k]) {
			return k
		}
	}
	return 0
}

func TestProcessor_ChunkLengthAndOverlap(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{})

	doc := models.Document{
		Source: "test",
		Pages:  []models.Page{{Number: 1, Text: sentences(200)}},
	}

	chunks, err := p.Process(doc, 0)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 2)

	for i, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Text), 1000)
		assert.Equal(t, i, c.Seq)
		assert.Equal(t, 1, c.Page)
	}

	for i := 1; i < len(chunks); i++ {
		k := overlap(chunks[i-1].Text, chunks[i].Text)
		assert.Greater(t, k, 0, "chunk %d shares no overlap with its predecessor", i)
		assert.LessOrEqual(t, k, 200, "chunk %d overlap too long", i)
	}
}

func TestProcessor_HardSplit(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 50, ChunkOverlap: 10})

	doc := models.Document{Pages: []models.Page{{Number: 1, Text: strings.Repeat("x", 175)}}}

	chunks, err := p.Process(doc, 0)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Text), 50)
	}
}

func TestProcessor_PageAttribution(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 100, ChunkOverlap: 20})

	doc := models.Document{
		Source: "book",
		Pages: []models.Page{
			{Number: 1, Text: "The year of the elephant. Abrahah marched on Mecca."},
			{Number: 2, Text: "   "},
			{Number: 3, Text: "Abd al-Muttalib spoke with Abrahah about his camels."},
		},
	}

	chunks, err := p.Process(doc, 10)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, 1, chunks[0].Page)
	assert.Equal(t, 3, chunks[1].Page)
	assert.Equal(t, 10, chunks[0].Seq)
	assert.Equal(t, 11, chunks[1].Seq)
	assert.Contains(t, chunks[1].Text, "camels")
	assert.NotEqual(t, chunks[0].ID, chunks[1].ID)
}

func TestProcessor_DeterministicIDs(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{})
	doc := models.Document{Source: "book", Pages: []models.Page{{Number: 1, Text: sentences(40)}}}

	first, err := p.Process(doc, 0)
	require.NoError(t, err)
	second, err := p.Process(doc, 0)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestNewWithConfig_Defaults(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{Separators: []string{"\n"}})
	config := p.Config()

	assert.Equal(t, 1000, config.ChunkSize)
	assert.Equal(t, 200, config.ChunkOverlap)
	assert.Equal(t, []string{"\n", ""}, config.Separators)
}
