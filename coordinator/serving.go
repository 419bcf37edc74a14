package coordinator

import (
	"sort"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"

	"pizzaagent"
)

// servingState is the dining-room bookkeeping shared between the event loop,
// which records arrivals and kitchen notifications, and the serving handler
// goroutine, which drains them. Everything is behind one mutex; Wake lets
// the handler sleep until there is something to do.
type servingState struct {
	mu       sync.Mutex
	menu     []pizzaagent.MenuItem
	seen     map[string]bool
	arrivals []pizzaagent.Meal
	prepared []preparedDish // FIFO, order of preparation
	ready    map[string]int // dish name -> ready count
	wake     chan struct{}
}

type preparedDish struct {
	dish     string
	clientID string
}

func newServingState() *servingState {
	return &servingState{
		seen:  map[string]bool{},
		ready: map[string]int{},
		wake:  make(chan struct{}, 1),
	}
}

// Wake returns a channel that receives after any state change.
func (s *servingState) Wake() <-chan struct{} { return s.wake }

func (s *servingState) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// SetMenu records the published menu used for order matching.
func (s *servingState) SetMenu(items []pizzaagent.MenuItem) {
	s.mu.Lock()
	s.menu = append([]pizzaagent.MenuItem(nil), items...)
	s.mu.Unlock()
	s.signal()
}

// AddClient queues a newly arrived customer. Arrivals come from both the
// event feed and the meal poll, so duplicates by client id are dropped here.
func (s *servingState) AddClient(meal pizzaagent.Meal) {
	if meal.ClientID == "" {
		return
	}
	s.mu.Lock()
	if s.seen[meal.ClientID] {
		s.mu.Unlock()
		return
	}
	s.seen[meal.ClientID] = true
	s.arrivals = append(s.arrivals, meal)
	s.mu.Unlock()
	s.signal()
}

// TakeArrivals removes and returns all queued arrivals.
func (s *servingState) TakeArrivals() []pizzaagent.Meal {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.arrivals
	s.arrivals = nil
	return out
}

// MarkPrepared records that a dish is in the kitchen for a client.
func (s *servingState) MarkPrepared(dish, clientID string) {
	s.mu.Lock()
	s.prepared = append(s.prepared, preparedDish{dish: dish, clientID: clientID})
	s.mu.Unlock()
}

// DishReady records a kitchen notification that one unit of a dish is done.
func (s *servingState) DishReady(dish string) {
	s.mu.Lock()
	s.ready[dish]++
	s.mu.Unlock()
	s.signal()
}

// NextServe pops the oldest prepared dish whose kitchen notification has
// arrived, pairing it with its waiting client.
func (s *servingState) NextServe() (dish, clientID string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.prepared {
		if s.ready[p.dish] > 0 {
			s.ready[p.dish]--
			s.prepared = append(s.prepared[:i], s.prepared[i+1:]...)
			return p.dish, p.clientID, true
		}
	}
	return "", "", false
}

// MatchDish maps a customer's free-text order onto a menu dish. Exact
// substring wins, then the dish sharing the most order words, then the
// closest by edit distance when it is close enough to be plausible.
func (s *servingState) MatchDish(orderText string) (string, bool) {
	s.mu.Lock()
	menu := s.menu
	s.mu.Unlock()
	if len(menu) == 0 {
		return "", false
	}

	order := strings.ToLower(orderText)
	for _, item := range menu {
		if strings.Contains(order, strings.ToLower(item.Name)) {
			return item.Name, true
		}
	}

	orderWords := map[string]bool{}
	for _, w := range strings.Fields(order) {
		orderWords[strings.Trim(w, ".,!?")] = true
	}
	bestOverlap, bestName := 0, ""
	names := make([]string, 0, len(menu))
	for _, item := range menu {
		names = append(names, item.Name)
	}
	sort.Strings(names)
	for _, name := range names {
		overlap := 0
		for _, w := range strings.Fields(strings.ToLower(name)) {
			if orderWords[w] {
				overlap++
			}
		}
		if overlap > bestOverlap {
			bestOverlap, bestName = overlap, name
		}
	}
	if bestOverlap > 0 {
		return bestName, true
	}

	// Customers misspell: accept the closest dish name if fewer than a
	// third of its characters differ.
	bestDist, bestName := -1, ""
	for _, name := range names {
		d := levenshtein.ComputeDistance(order, strings.ToLower(name))
		if bestDist < 0 || d < bestDist {
			bestDist, bestName = d, name
		}
	}
	if bestName != "" && bestDist <= len(bestName)/3 {
		return bestName, true
	}
	return "", false
}
