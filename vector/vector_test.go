package vector

import "testing"

func TestCosineSimilarityIdentical(t *testing.T) {
	a := []float32{1, 2, 3}
	got := CosineSimilarity(a, a)
	if got < 0.999 || got > 1.001 {
		t.Errorf("expected similarity ~1, got %f", got)
	}
}

func TestCosineSimilarityOrthogonal(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	if got := CosineSimilarity(a, b); got != 0 {
		t.Errorf("expected 0 for orthogonal vectors, got %f", got)
	}
}

func TestCosineSimilarityMismatchedLength(t *testing.T) {
	if got := CosineSimilarity([]float32{1, 2}, []float32{1}); got != 0 {
		t.Errorf("expected 0 for mismatched lengths, got %f", got)
	}
}

func TestNormalize(t *testing.T) {
	vec := Normalize([]float32{3, 4})
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("expected unit length, got squared norm %f", sum)
	}
}

func TestSortResultsTieBreak(t *testing.T) {
	results := []SearchResult{
		{DocID: "doc-c", Score: 0.5},
		{DocID: "doc-a", Score: 0.5},
		{DocID: "doc-b", Score: 0.9},
	}
	SortResults(results)

	want := []string{"doc-b", "doc-a", "doc-c"}
	for i, id := range want {
		if results[i].DocID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, results[i].DocID)
		}
	}
}
