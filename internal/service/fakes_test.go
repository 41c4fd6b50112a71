package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"

	"github.com/and161185/graph-connector/internal/errs"
	"github.com/and161185/graph-connector/internal/graph"
	"github.com/and161185/graph-connector/internal/model"
	"github.com/and161185/graph-connector/internal/repository"
	"github.com/gofrs/uuid/v5"
)

// ---- graph ----

type graphCall struct {
	Path   string
	Params url.Values
}

type fakeGraph struct {
	mu        sync.Mutex
	responses map[string][]string // path -> JSON bodies served in order, last one repeats
	errs      map[string]error    // path -> error
	calls     []graphCall

	posts    []graphCall
	postBody any
	postTok  string
	postResp string
	postErr  error
}

var (
	_ GraphReader = (*fakeGraph)(nil)
	_ GraphWriter = (*fakeGraph)(nil)
)

func newFakeGraph(responses map[string][]string) *fakeGraph {
	return &fakeGraph{responses: responses, errs: map[string]error{}}
}

func (g *fakeGraph) Get(_ context.Context, path string, params url.Values) (graph.Object, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, graphCall{Path: path, Params: params})
	if err, ok := g.errs[path]; ok {
		return nil, err
	}
	queue, ok := g.responses[path]
	if !ok || len(queue) == 0 {
		return nil, errors.New("unexpected path " + path)
	}
	body := queue[0]
	if len(queue) > 1 {
		g.responses[path] = queue[1:]
	}
	var o graph.Object
	if err := json.Unmarshal([]byte(body), &o); err != nil {
		return nil, err
	}
	return o, nil
}

func (g *fakeGraph) PostJSON(_ context.Context, path, token string, body any) (graph.Object, error) {
	g.posts = append(g.posts, graphCall{Path: path})
	g.postTok = token
	g.postBody = body
	if g.postErr != nil {
		return nil, g.postErr
	}
	var o graph.Object
	if err := json.Unmarshal([]byte(g.postResp), &o); err != nil {
		return nil, err
	}
	return o, nil
}

func (g *fakeGraph) paths() []string {
	out := make([]string, 0, len(g.calls))
	for _, c := range g.calls {
		out = append(out, c.Path)
	}
	return out
}

// ---- repositories ----

type fakeAccounts struct {
	byFB      map[string]*model.Account
	upserts   int
	upsertErr error
	getErr    error
}

var _ repository.AccountRepository = (*fakeAccounts)(nil)

func newFakeAccounts() *fakeAccounts { return &fakeAccounts{byFB: map[string]*model.Account{}} }

func (f *fakeAccounts) Upsert(_ context.Context, fbUserID, token string) (*model.Account, error) {
	f.upserts++
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	a, ok := f.byFB[fbUserID]
	if !ok {
		a = &model.Account{ID: uuid.Must(uuid.NewV4()), FBUserID: fbUserID}
		f.byFB[fbUserID] = a
	}
	a.LongLivedToken = token
	c := *a
	return &c, nil
}

func (f *fakeAccounts) GetByFBUserID(_ context.Context, fbUserID string) (*model.Account, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	a, ok := f.byFB[fbUserID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *a
	return &c, nil
}

type fakePages struct {
	byPageID map[string]*model.Page
	failFor  map[string]error
	attempts []string
	listErr  error
}

var _ repository.PageRepository = (*fakePages)(nil)

func newFakePages() *fakePages {
	return &fakePages{byPageID: map[string]*model.Page{}, failFor: map[string]error{}}
}

func (f *fakePages) Upsert(_ context.Context, p *model.Page) (*model.Page, error) {
	f.attempts = append(f.attempts, p.PageID)
	if err, ok := f.failFor[p.PageID]; ok {
		return nil, err
	}
	cur, ok := f.byPageID[p.PageID]
	if !ok {
		cur = &model.Page{ID: uuid.Must(uuid.NewV4()), PageID: p.PageID}
		f.byPageID[p.PageID] = cur
	}
	cur.AccountID = p.AccountID
	cur.Name = p.Name
	cur.AccessToken = p.AccessToken
	cur.InstagramID = p.InstagramID
	if p.WhatsAppID != nil {
		cur.WhatsAppID = p.WhatsAppID
	}
	if p.WhatsAppPhoneNumberID != nil {
		cur.WhatsAppPhoneNumberID = p.WhatsAppPhoneNumberID
	}
	c := *cur
	return &c, nil
}

func (f *fakePages) ListByAccount(_ context.Context, accountID uuid.UUID) ([]model.Page, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.Page
	for _, p := range f.byPageID {
		if p.AccountID == accountID {
			out = append(out, *p)
		}
	}
	return out, nil
}
