package services

import (
	"fmt"
	"log"
	"time"

	pubnub "github.com/pubnub/go/v7"

	"tickethub/utils"
)

// Notifier publishes post-commit purchase confirmations to the buyer's
// channel. Publishing is best effort and always happens after the
// transaction has committed; a delivery failure never unwinds a purchase.
type Notifier struct {
	pn      *pubnub.PubNub
	breaker *utils.Breaker
}

func NewNotifier(pn *pubnub.PubNub) *Notifier {
	return &Notifier{
		pn:      pn,
		breaker: utils.NewBreaker("pubnub-publish", 5, 30*time.Second),
	}
}

// TicketPurchased tells the buyer their ticket is confirmed.
func (n *Notifier) TicketPurchased(userID string, result *PurchaseResult) {
	if n == nil || n.pn == nil {
		return
	}

	err := n.breaker.Do(func() error {
		channel := fmt.Sprintf("user-%s", userID)
		_, _, err := n.pn.Publish().
			Channel(channel).
			Message(map[string]any{
				"type":          "ticket_purchased",
				"ticket_id":     result.TicketID,
				"ticket_number": result.TicketNumber,
				"event_name":    result.EventName,
				"total_price":   result.TotalPrice,
			}).
			Execute()
		return err
	})
	if err != nil {
		log.Printf("purchase notification for user %s failed: %v", userID, err)
	}
}
