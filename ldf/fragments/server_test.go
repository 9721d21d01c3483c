package fragments

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/wbrown/janus-ldf/ldf/rdf"
)

// tpfServer is a minimal Triple Pattern Fragments interface over an
// in-memory dataset, serving N-Triples pages.
type tpfServer struct {
	*httptest.Server
	triples  []rdf.Triple
	pageSize int
	freeText bool
	status   int

	mu       sync.Mutex
	requests []*http.Request
}

func newTPFServer(t *testing.T, triples []rdf.Triple, pageSize int) *tpfServer {
	t.Helper()
	s := &tpfServer{triples: triples, pageSize: pageSize}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func (s *tpfServer) setStatus(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = code
}

func (s *tpfServer) setFreeText(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.freeText = on
}

func (s *tpfServer) startURL() string {
	return s.URL + "/dataset"
}

func (s *tpfServer) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *tpfServer) lastRequest() *http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

func (s *tpfServer) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r)
	status, freeText := s.status, s.freeText
	s.mu.Unlock()
	if status != 0 {
		w.WriteHeader(status)
		return
	}

	q := r.URL.Query()
	pattern := rdf.Triple{Subject: q.Get("subject"), Predicate: q.Get("predicate"), Object: q.Get("object")}
	search := strings.ToLower(q.Get("search"))
	var matches []rdf.Triple
	for _, t := range s.triples {
		if search != "" {
			if rdf.IsLiteral(t.Object) && strings.Contains(strings.ToLower(rdf.LiteralValue(t.Object)), search) {
				matches = append(matches, t)
			}
			continue
		}
		if pattern.Matches(t) {
			matches = append(matches, t)
		}
	}

	page := 1
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		page = p
	}
	from := min((page-1)*s.pageSize, len(matches))
	to := min(from+s.pageSize, len(matches))

	fragment := "http://" + r.Host + r.URL.RequestURI()
	var b strings.Builder
	for _, t := range matches[from:to] {
		b.WriteString(ntriple(t))
	}
	count := fmt.Sprintf(`"%d"^^<%s>`, len(matches), rdf.XSDInteger)
	fmt.Fprintf(&b, "<%s> <%s> %s .\n", fragment, rdf.VoidTriples, count)
	fmt.Fprintf(&b, "<%s> <%s> %s .\n", fragment, rdf.HydraTotalItems, count)
	if to < len(matches) {
		next, _ := url.Parse(fragment)
		nq := next.Query()
		nq.Set("page", strconv.Itoa(page+1))
		next.RawQuery = nq.Encode()
		fmt.Fprintf(&b, "<%s> <%s> <%s> .\n", fragment, rdf.Hydra+"next", next.String())
	}
	dataset := s.startURL() + "#dataset"
	fmt.Fprintf(&b, "<%s> <%s> _:form .\n", dataset, rdf.HydraSearch)
	fmt.Fprintf(&b, "_:form <%s> \"%s{?subject,predicate,object,search}\" .\n", rdf.HydraTemplate, s.startURL())
	mappings := [][2]string{{"subject", rdf.RDFSubject}, {"predicate", rdf.RDFPredicate}, {"object", rdf.RDFObject}}
	if freeText {
		mappings = append(mappings, [2]string{"search", rdf.HydraFreetextQuery})
	}
	for _, m := range mappings {
		fmt.Fprintf(&b, "_:form <%s> _:%s .\n", rdf.HydraMapping, m[0])
		fmt.Fprintf(&b, "_:%s <%s> \"%s\" .\n", m[0], rdf.HydraVariable, m[0])
		fmt.Fprintf(&b, "_:%s <%s> <%s> .\n", m[0], rdf.HydraProperty, m[1])
	}

	w.Header().Set("Content-Type", "application/n-triples; charset=utf-8")
	_, _ = w.Write([]byte(b.String()))
}

// httpHandler serves h and returns the server URL.
func httpHandler(t *testing.T, h http.HandlerFunc) string {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv.URL
}

func ntriple(t rdf.Triple) string {
	return ntTerm(t.Subject) + " " + ntTerm(t.Predicate) + " " + ntTerm(t.Object) + " .\n"
}

func ntTerm(term string) string {
	switch {
	case rdf.IsBlank(term):
		return term
	case rdf.IsLiteral(term):
		value := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`).Replace(rdf.LiteralValue(term))
		if lang := rdf.LiteralLanguage(term); lang != "" {
			return `"` + value + `"@` + lang
		}
		if dt := rdf.LiteralType(term); dt != rdf.XSDString {
			return `"` + value + `"^^<` + dt + `>`
		}
		return `"` + value + `"`
	}
	return "<" + term + ">"
}

func people(n int) []rdf.Triple {
	var triples []rdf.Triple
	for i := 0; i < n; i++ {
		person := rdf.DBpedia + "Person_" + strconv.Itoa(i)
		triples = append(triples,
			rdf.NewTriple(person, rdf.RDFType, rdf.DBpediaOWL+"Person"),
			rdf.NewTriple(person, rdf.DBpediaOWL+"name", rdf.NewLangLiteral("Person "+strconv.Itoa(i), "en")),
		)
	}
	return triples
}
