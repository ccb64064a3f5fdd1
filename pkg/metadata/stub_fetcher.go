package metadata

import "context"

// StubFetcher serves canned metadata in tests.
type StubFetcher struct {
	Titles map[string]string
	Images map[string]string
}

func NewStubFetcher() *StubFetcher {
	return &StubFetcher{Titles: map[string]string{}, Images: map[string]string{}}
}

func (s *StubFetcher) FetchTitle(_ context.Context, url string) string {
	return s.Titles[url]
}

func (s *StubFetcher) FetchImageURL(_ context.Context, url string) string {
	return s.Images[url]
}
