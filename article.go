package slicebox

import "time"

type (
	// Article is the state held by the article slice
	Article struct {
		PublishedAt time.Time `json:"published_at,omitzero"`
		Title       string    `json:"title,omitempty"`
		Author      string    `json:"author,omitempty"`
		Body        string    `json:"body,omitempty"`
		Tags        []string  `json:"tags,omitempty"`
		ID          int64     `json:"id,omitempty"`
	}

	// ReceiveArticle signals that article data has been fetched and should
	// become the article slice
	ReceiveArticle struct {
		Article *Article `json:"article"`
	}
)

const (
	// ArticleSlice is the slice name the article reducer is registered under
	ArticleSlice SliceName = "article"

	// ActionReceiveArticle is the type of the ReceiveArticle action
	ActionReceiveArticle ActionType = "RECEIVE_ARTICLE"
)

// ArticleReducer replaces the article slice with the payload of a
// ReceiveArticle action and returns any other action's state as-is
func ArticleReducer(state *Article, action Action) *Article {
	if state == nil {
		state = NewArticleState()
	}
	return articleReducers(state, action)
}

var articleReducers = MakeReducer(Reducers[*Article]{
	ActionReceiveArticle: On(
		func(state *Article, a *ReceiveArticle) *Article {
			if a == nil {
				return state
			}
			return a.Article
		},
	),
})

// NewArticleState returns the empty article slice
func NewArticleState() *Article {
	return &Article{}
}

// Type returns ActionReceiveArticle
func (*ReceiveArticle) Type() ActionType {
	return ActionReceiveArticle
}

// RegisterArticle registers the article slice and its actions with r
func RegisterArticle(r *Root) error {
	if err := Register(r, ArticleSlice, NewArticleState, ArticleReducer); err != nil {
		return err
	}
	r.RegisterAction(ActionReceiveArticle, MakeDecoder[ReceiveArticle]())
	return nil
}
