package marketing

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/georgemunganga/bijoux-shop/internal/platform/requestctx"
)

// Sender fans a campaign out to its recipients with bounded concurrency.
// A failed recipient is counted and logged; it never stops the others.
type Sender struct {
	mailer  Mailer
	render  *EmailRenderer
	workers int
}

func NewSender(mailer Mailer, render *EmailRenderer, workers int) *Sender {
	if workers <= 0 {
		workers = 1
	}
	return &Sender{mailer: mailer, render: render, workers: workers}
}

// Send returns once every recipient was attempted, or ctx was cancelled.
func (s *Sender) Send(ctx context.Context, c *Campaign, recipients []*Subscriber) (SendResult, error) {
	logger := requestctx.Logger(ctx).With(zap.String("campaign_id", c.ID.String()))
	var sent, failed int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, sub := range recipients {
		sub := sub
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			msg, err := s.render.Render(c, sub)
			if err == nil {
				err = s.mailer.Send(gctx, msg)
			}
			if err != nil {
				atomic.AddInt64(&failed, 1)
				logger.Warn("campaign recipient failed", zap.String("to", sub.Email), zap.Error(err))
				return nil
			}
			atomic.AddInt64(&sent, 1)
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	res := SendResult{Sent: int(sent), Failed: int(failed)}
	res.Pending = len(recipients) - res.Sent - res.Failed
	logger.Info("campaign fan-out finished",
		zap.Int("sent", res.Sent), zap.Int("failed", res.Failed), zap.Int("pending", res.Pending))
	return res, err
}
