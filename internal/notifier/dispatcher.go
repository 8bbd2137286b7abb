// internal/notifier/dispatcher.go
package notifier

import (
	"context"
	"fmt"
	"html"

	"go.uber.org/zap"

	"github.com/ps-vitor/crous-notifier/internal/domain"
	"github.com/ps-vitor/crous-notifier/pkg/logger"
)

// Channel is a chat-style push API. Neither call waits for a delivery receipt.
type Channel interface {
	SendPhoto(ctx context.Context, imageURL, caption string) error
	SendText(ctx context.Context, text string) error
}

// DeliveryMode tells how a notification finally reached the channel.
type DeliveryMode string

const (
	DeliveryNone DeliveryMode = "none"
	DeliveryRich DeliveryMode = "rich"
	DeliveryText DeliveryMode = "text"
)

// Delivery is the outcome of Send. RichErr holds why the rich attempt was
// abandoned when the listing had an image but was delivered as text.
type Delivery struct {
	Mode    DeliveryMode
	RichErr error
}

// Fallback reports whether the text path was used after a failed rich attempt.
func (d Delivery) Fallback() bool {
	return d.Mode == DeliveryText && d.RichErr != nil
}

type Dispatcher struct {
	channel Channel
	log     *logger.Logger
}

func NewDispatcher(channel Channel, log *logger.Logger) *Dispatcher {
	return &Dispatcher{channel: channel, log: log.Named("dispatcher")}
}

// Send delivers one listing: image with caption first, the same text alone if
// that fails. It returns a *domain.NotifyError only when the text delivery fails too.
func (d *Dispatcher) Send(ctx context.Context, listing domain.Listing) (Delivery, error) {
	text := FormatMessage(listing)
	var delivery Delivery

	if listing.ImageURL != "" {
		err := d.channel.SendPhoto(ctx, listing.ImageURL, text)
		if err == nil {
			return Delivery{Mode: DeliveryRich}, nil
		}
		delivery.RichErr = err
		d.log.Debug("Rich delivery failed, falling back to text",
			zap.String("listing_id", listing.ID),
			zap.String("image_url", listing.ImageURL),
			zap.Error(err),
		)
	}

	if err := d.channel.SendText(ctx, text); err != nil {
		delivery.Mode = DeliveryNone
		return delivery, &domain.NotifyError{ListingID: listing.ID, RichErr: delivery.RichErr, TextErr: err}
	}
	delivery.Mode = DeliveryText
	return delivery, nil
}

// Alert sends an operator message as plain text.
func (d *Dispatcher) Alert(ctx context.Context, text string) error {
	if err := d.channel.SendText(ctx, text); err != nil {
		return fmt.Errorf("send alert: %w", err)
	}
	return nil
}

// FormatMessage renders the HTML notification body for a listing.
func FormatMessage(l domain.Listing) string {
	return fmt.Sprintf(
		"🏠 <b>Nouveau logement CROUS disponible !</b>\n\n"+
			"📍 <b>%s</b>\n"+
			"%s\n"+
			"💶 %s\n"+
			"🔗 <a href=\"%s\">Voir le logement</a>",
		html.EscapeString(l.Name),
		html.EscapeString(l.Address),
		html.EscapeString(l.Price),
		html.EscapeString(l.URL),
	)
}
