package circulation

import (
	"math"
	"sort"
)

// Recommender suggests books to a member using k-nearest-neighbor
// collaborative filtering over genre-preference vectors, with a
// content-based fallback when no similar member exists.
type Recommender struct {
	lib *Library
}

// NewRecommender returns a recommender over the library's current state.
func NewRecommender(lib *Library) *Recommender {
	return &Recommender{lib: lib}
}

// Recommend returns up to topN books for the member. kNeighbors caps how
// many similar members contribute (<= 0 means all). With availableOnly
// set, books with no copy on the shelf are skipped.
//
// Each member is represented as a vector over the catalog's genres:
// explicit preferences weigh 2.0 (strong cold-start signal), each past
// borrow of a genre weighs 1.0. Candidates borrowed by the k most
// cosine-similar members accumulate the neighbor similarities as their
// score, plus a small popularity boost (0.05 per borrow). If no neighbor
// overlaps, the fallback scores every unread book by the member's own
// genre weight plus 0.1 per borrow. Ties break on ISBN ascending so the
// ranking is deterministic.
func (r *Recommender) Recommend(memberID string, topN, kNeighbors int, availableOnly bool) []Book {
	if topN <= 0 {
		return nil
	}
	snap := r.lib.Snapshot()

	var target *Member
	for i := range snap.Members {
		if snap.Members[i].ID == memberID {
			target = &snap.Members[i]
			break
		}
	}
	if target == nil {
		return nil
	}

	byISBN := make(map[string]Book, len(snap.Books))
	for _, b := range snap.Books {
		byISBN[b.ISBN] = b
	}
	genreIndex := buildGenreIndex(snap.Books)
	if len(genreIndex) == 0 {
		return nil
	}

	targetVec := memberVector(*target, snap.Loans, byISBN, genreIndex)

	type neighbor struct {
		id         string
		similarity float64
	}
	var neighbors []neighbor
	for _, m := range snap.Members {
		if m.ID == target.ID {
			continue
		}
		vec := memberVector(m, snap.Loans, byISBN, genreIndex)
		if sim := cosineSimilarity(vec, targetVec); sim > 0 {
			neighbors = append(neighbors, neighbor{m.ID, sim})
		}
	}
	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].similarity > neighbors[j].similarity
	})
	if kNeighbors > 0 && kNeighbors < len(neighbors) {
		neighbors = neighbors[:kNeighbors]
	}

	borrowed := make(map[string]bool)
	popularity := make(map[string]int)
	for _, l := range snap.Loans {
		popularity[l.ISBN]++
		if l.MemberID == memberID {
			borrowed[l.ISBN] = true
		}
	}

	scores := make(map[string]float64)
	for _, n := range neighbors {
		for _, l := range snap.Loans {
			if l.MemberID != n.id || borrowed[l.ISBN] {
				continue
			}
			scores[l.ISBN] += n.similarity
		}
	}

	if len(scores) == 0 {
		// Content-based fallback: the member's own genre weights, nudged
		// by popularity.
		for _, b := range snap.Books {
			if borrowed[b.ISBN] {
				continue
			}
			idx, ok := genreIndex[b.Genre]
			if !ok {
				continue
			}
			scores[b.ISBN] = targetVec[idx] + 0.1*float64(popularity[b.ISBN])
		}
	} else {
		for isbn := range scores {
			scores[isbn] += 0.05 * float64(popularity[isbn])
		}
	}

	type candidate struct {
		isbn  string
		score float64
	}
	ranked := make([]candidate, 0, len(scores))
	for isbn, score := range scores {
		ranked = append(ranked, candidate{isbn, score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].isbn < ranked[j].isbn
	})

	var results []Book
	for _, c := range ranked {
		if len(results) >= topN {
			break
		}
		book, ok := byISBN[c.isbn]
		if !ok {
			continue
		}
		if availableOnly && !book.CanBorrow() {
			continue
		}
		results = append(results, book)
	}
	return results
}

// buildGenreIndex assigns each distinct genre a vector slot, in catalog
// order.
func buildGenreIndex(books []Book) map[string]int {
	index := make(map[string]int)
	for _, b := range books {
		if _, ok := index[b.Genre]; !ok {
			index[b.Genre] = len(index)
		}
	}
	return index
}

// memberVector builds the member's genre-weight vector: 2.0 per explicit
// preference, 1.0 per past borrow.
func memberVector(m Member, loans []Loan, byISBN map[string]Book, genreIndex map[string]int) []float64 {
	vec := make([]float64, len(genreIndex))
	for _, pref := range m.Preferences {
		if idx, ok := genreIndex[pref]; ok {
			vec[idx] += 2.0
		}
	}
	for _, l := range loans {
		if l.MemberID != m.ID {
			continue
		}
		book, ok := byISBN[l.ISBN]
		if !ok {
			continue
		}
		if idx, ok := genreIndex[book.Genre]; ok {
			vec[idx] += 1.0
		}
	}
	return vec
}

func cosineSimilarity(lhs, rhs []float64) float64 {
	if len(lhs) == 0 || len(lhs) != len(rhs) {
		return 0
	}
	var dot, normL, normR float64
	for i := range lhs {
		dot += lhs[i] * rhs[i]
		normL += lhs[i] * lhs[i]
		normR += rhs[i] * rhs[i]
	}
	if normL <= 0 || normR <= 0 {
		return 0
	}
	return dot / (math.Sqrt(normL) * math.Sqrt(normR))
}
