package domain

import (
	"context"
	"time"
)

// WindowState é uma fotografia da janela fixa de uma identidade logo após
// o incremento.
type WindowState struct {
	Start time.Time
	Count int64
	Max   int64
	// Duration é o tamanho da janela.
	Duration time.Duration
}

func (w WindowState) ResetAt() time.Time { return w.Start.Add(w.Duration) }

func (w WindowState) Exceeded() bool { return w.Count > w.Max }

func (w WindowState) Remaining() int64 {
	if w.Count >= w.Max {
		return 0
	}
	return w.Max - w.Count
}

// WindowStore guarda as janelas de rate limit por identidade.
//
// Hit deve ser atômico por identidade: zera a janela se now >= start+duração,
// incrementa e devolve o estado pós-incremento. O incremento nunca é desfeito.
type WindowStore interface {
	Hit(ctx context.Context, id Identity, now time.Time) (WindowState, error)
}

// Clock permite injetar o tempo nos testes.
type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock usa time.Now.
var SystemClock Clock = ClockFunc(time.Now)
