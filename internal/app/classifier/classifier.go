// Package classifier is the fallback responder: it maps an utterance to a
// category with an ordered rule list and answers with one of that category's
// canned replies. It never fails and never returns an empty reply.
package classifier

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// Picker chooses an index in [0, n). *rand.Rand satisfies it.
type Picker interface {
	IntN(n int) int
}

// Result is the outcome of a classification.
type Result struct {
	Category Category
	Reply    string
}

type Classifier struct {
	rules   []Rule
	replies map[Category][]string

	mu     sync.Mutex // guards picker
	picker Picker
}

type Option func(*Classifier)

// WithPicker sets the random source used to pick a reply.
func WithPicker(p Picker) Option {
	return func(c *Classifier) {
		if p != nil {
			c.picker = p
		}
	}
}

// WithSeed makes reply selection reproducible.
func WithSeed(seed uint64) Option {
	return WithPicker(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// WithRules replaces the rule list and reply table.
func WithRules(rules []Rule, replies map[Category][]string) Option {
	return func(c *Classifier) {
		c.rules = rules
		c.replies = replies
	}
}

// New builds a classifier with the default rules and a time-seeded picker.
// It returns an error if any rule category has no replies or if the rule
// list does not end in a catch-all for CategoryDefault.
func New(opts ...Option) (*Classifier, error) {
	seed := uint64(time.Now().UnixNano())
	c := &Classifier{
		rules:   DefaultRules(),
		replies: DefaultReplies(),
		picker:  rand.New(rand.NewPCG(seed, seed>>1)),
	}
	for _, opt := range opts {
		opt(c)
	}

	if len(c.rules) == 0 || c.rules[len(c.rules)-1].Category != CategoryDefault {
		return nil, fmt.Errorf("classifier: rule list must end with %q", CategoryDefault)
	}
	for _, r := range c.rules {
		if r.Match == nil {
			return nil, fmt.Errorf("classifier: rule %q has no matcher", r.Category)
		}
		if len(c.replies[r.Category]) == 0 {
			return nil, fmt.Errorf("classifier: no replies for category %q", r.Category)
		}
	}
	return c, nil
}

// MustNew is New for static configurations.
func MustNew(opts ...Option) *Classifier {
	c, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Categorize returns the first category whose rule matches. It is deterministic.
func (c *Classifier) Categorize(utterance string) Category {
	s := Normalize(utterance)
	for _, r := range c.rules {
		if r.Match(s) {
			return r.Category
		}
	}
	// unreachable with a validated rule list
	return CategoryDefault
}

// Classify picks a reply for the utterance.
func (c *Classifier) Classify(utterance string) Result {
	cat := c.Categorize(utterance)
	options := c.replies[cat]

	c.mu.Lock()
	i := c.picker.IntN(len(options))
	c.mu.Unlock()

	return Result{Category: cat, Reply: options[i]}
}

// Replies returns a copy of a category's canned replies.
func (c *Classifier) Replies(cat Category) []string {
	return append([]string(nil), c.replies[cat]...)
}

// Categories lists categories in evaluation order.
func (c *Classifier) Categories() []Category {
	out := make([]Category, 0, len(c.rules))
	for _, r := range c.rules {
		out = append(out, r.Category)
	}
	return out
}
