package flow

import (
	"strconv"
	"strings"

	"github.com/yungbote/lovabuddy/internal/cards"
)

var planningMessages = []string{
	"Sprinkling magic dust…",
	"Gathering awesome ideas…",
	"Painting rainbow colors…",
	"Choosing friendly fonts…",
	"Warming up our build bots…",
}

var improvingMessages = []string{
	"Reading your ideas…",
	"Polishing the pieces…",
	"Adding your changes…",
	"Almost ready…",
}

// LoadingMessages returns the rotating lines shown while a request is outstanding.
func (s *Session) LoadingMessages() []string {
	switch s.state {
	case StatePlanning:
		return planningMessages
	case StateFinalizing:
		return []string{
			"Casting the build spell…",
			"Building your " + Vibe(s.ctx.Palette) + "…",
			"Adding extra sparkles…",
			"Packing everything nicely…",
			"Almost ready…",
		}
	case StateImprovement:
		return improvingMessages
	}
	return []string{"Working…"}
}

var (
	warmWords = []string{"red", "orange"}
	coolWords = []string{"blue", "green", "teal"}
)

// Vibe names the mood of a palette. Warm wins over cool when both appear.
func Vibe(palette []string) string {
	warm, cool := false, false
	for _, c := range palette {
		lc := strings.ToLower(strings.TrimSpace(c))
		switch w := cards.Warmth(lc); {
		case w > 0 || containsAny(lc, warmWords):
			warm = true
		case w < 0 || containsAny(lc, coolWords):
			cool = true
		}
	}
	switch {
	case warm:
		return "fiery colors"
	case cool:
		return "cool palette"
	}
	return "chosen style"
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// Progress returns the 1-based index of the current step and the plan length.
func (s *Session) Progress() (int, int) {
	n := len(s.plan.Steps)
	if n == 0 {
		return 0, 0
	}
	i := s.step + 1
	if i > n {
		i = n
	}
	return i, n
}

// ProgressLabel renders "i/n" followed by one dot per step, the current one filled.
func (s *Session) ProgressLabel() string {
	i, n := s.Progress()
	if n == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(strconv.Itoa(i) + "/" + strconv.Itoa(n) + " ")
	for k := 1; k <= n; k++ {
		if k == i {
			b.WriteString("●")
		} else {
			b.WriteString("○")
		}
	}
	return b.String()
}

// ReadAloudTexts lists the spoken text for every step of the plan, for audio preloading.
func (s *Session) ReadAloudTexts() []string {
	out := make([]string, len(s.plan.Steps))
	for i, st := range s.plan.Steps {
		out[i] = st.ReadAloud()
	}
	return out
}
