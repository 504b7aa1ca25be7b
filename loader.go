package boxon

import (
	"sort"
	"sync"
)

// Loader dispatches an incoming byte stream to the Template whose header
// start sequence matches, and can locate the next message boundary inside
// a longer buffer via Knuth-Morris-Pratt search (§4.2's "template loader
// dispatching by header-prefix match" / "find_next_message_index"),
// mirroring glint's DecodeInstructionLookup: a mutex-guarded, compute-
// once lookup structure shared across decode calls.
type Loader struct {
	mu      sync.RWMutex
	entries []loaderEntry

	// dispatchKeys is entries' starts flattened into one slice and kept
	// sorted by (len(key) desc, key asc) per §4.2, so a longer, more
	// specific start sequence is always tried before a shorter one that is
	// its prefix. Rebuilt whenever Register adds an entry.
	dispatchKeys []dispatchKey

	failureCache sync.Map // pattern string -> []int (memoized KMP failure tables)
}

type loaderEntry struct {
	tpl    *Template
	starts [][]byte
}

type dispatchKey struct {
	start []byte
	tpl   *Template
}

// NewLoader returns an empty Loader.
func NewLoader() *Loader { return &Loader{} }

// Register adds tpl to the dispatch table. It is a TemplateError (§7) for
// two registered templates to share a start sequence.
func (l *Loader) Register(tpl *Template) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var starts [][]byte
	if tpl.Header != nil {
		starts = tpl.Header.Start
	}

	for _, s := range starts {
		for _, e := range l.entries {
			for _, existing := range e.starts {
				if bytesEqual(existing, s) {
					return &TemplateError{Template: tpl.Name(), Message: "duplicate header start sequence shared with " + e.tpl.Name()}
				}
			}
		}
	}

	l.entries = append(l.entries, loaderEntry{tpl: tpl, starts: starts})

	for _, s := range starts {
		l.dispatchKeys = append(l.dispatchKeys, dispatchKey{start: s, tpl: tpl})
	}
	sort.Slice(l.dispatchKeys, func(i, j int) bool {
		a, b := l.dispatchKeys[i].start, l.dispatchKeys[j].start
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return string(a) < string(b)
	})

	return nil
}

// Dispatch returns the Template whose header start sequence is a prefix of
// data, trying longer (more specific) start sequences before shorter ones
// that are their prefix (§4.2). A TemplateError is returned if none match.
func (l *Loader) Dispatch(data []byte) (*Template, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, k := range l.dispatchKeys {
		if len(k.start) == 0 {
			continue
		}
		if len(data) >= len(k.start) && bytesEqual(data[:len(k.start)], k.start) {
			return k.tpl, nil
		}
	}
	return nil, &TemplateError{Message: "no templates found matching the given header"}
}

// FindNextMessageIndex scans data starting at from for the earliest
// occurrence of any registered template's start sequence, returning its
// byte offset, the matching Template, and true; or (0, nil, false) if none
// of the registered sequences occur anywhere in data[from:]. Ties at the
// same offset favor the longer (more specific) start sequence, following
// dispatchKeys' (len desc, key asc) order.
func (l *Loader) FindNextMessageIndex(data []byte, from int) (int, *Template, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	best := -1
	var bestTpl *Template

	for _, k := range l.dispatchKeys {
		if len(k.start) == 0 {
			continue
		}
		idx := l.kmpSearch(data, k.start, from)
		if idx < 0 {
			continue
		}
		if best == -1 || idx < best {
			best = idx
			bestTpl = k.tpl
		}
	}

	if best == -1 {
		return 0, nil, false
	}
	return best, bestTpl, true
}

// kmpFailure returns pattern's KMP failure function, computing and caching
// it on first use per distinct pattern bytes.
func (l *Loader) kmpFailure(pattern []byte) []int {
	key := string(pattern)
	if cached, ok := l.failureCache.Load(key); ok {
		return cached.([]int)
	}

	failure := make([]int, len(pattern))
	k := 0
	for i := 1; i < len(pattern); i++ {
		for k > 0 && pattern[i] != pattern[k] {
			k = failure[k-1]
		}
		if pattern[i] == pattern[k] {
			k++
		}
		failure[i] = k
	}

	actual, _ := l.failureCache.LoadOrStore(key, failure)
	return actual.([]int)
}

// kmpSearch finds the first occurrence of pattern in haystack at or after
// from, or -1 if none.
func (l *Loader) kmpSearch(haystack, pattern []byte, from int) int {
	if len(pattern) == 0 || from >= len(haystack) {
		return -1
	}
	failure := l.kmpFailure(pattern)

	k := 0
	for i := from; i < len(haystack); i++ {
		for k > 0 && haystack[i] != pattern[k] {
			k = failure[k-1]
		}
		if haystack[i] == pattern[k] {
			k++
		}
		if k == len(pattern) {
			return i - len(pattern) + 1
		}
	}
	return -1
}
