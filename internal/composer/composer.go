// Package composer decides how to answer an inbound message: interactive
// catalog cards first, then the generated text reply.
package composer

import (
	"context"
	"errors"
	"time"

	"github.com/factoryia/fincasya-new/internal/catalog"
	"github.com/factoryia/fincasya-new/internal/conversation"
	"github.com/factoryia/fincasya-new/internal/intent"
	"github.com/factoryia/fincasya-new/internal/knowledge"
	"github.com/factoryia/fincasya-new/internal/models"

	"github.com/rs/zerolog/log"
)

// Collaborator surfaces, kept narrow so tests can substitute mocks.

type TextSender interface {
	SendText(to, body, replyTo string) error
}

type CardSender interface {
	SendCatalogCard(to string, productIDs []string, body, catalogID, replyTo string) error
}

type Generator interface {
	GenerateReply(ctx context.Context, system string, history []models.Message) (string, error)
}

type KnowledgeSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]knowledge.Snippet, error)
}

type ListingSearcher interface {
	SearchByName(term string) ([]models.Finca, error)
	FindAvailable(location string, entry, exit time.Time) ([]models.Finca, error)
}

type CatalogResolver interface {
	ResolveForLocation(location string) (*models.Catalog, error)
	Default() (*models.Catalog, error)
	ProductIDs(catalogID uint, fincaIDs []uint) ([]string, error)
}

type Conversations interface {
	Status(conversationID uint) (string, error)
	AppendMessage(conversationID uint, sender, content, wamID string) (*models.Message, error)
	RecentMessages(conversationID uint, limit int) ([]models.Message, error)
}

const historyLimit = 10

type Composer struct {
	conversations Conversations
	listings      ListingSearcher
	catalogs      CatalogResolver
	knowledge     KnowledgeSearcher
	generator     Generator
	texts         TextSender
	cards         CardSender
	now           func() time.Time
}

func New(conversations Conversations, listings ListingSearcher, catalogs CatalogResolver,
	know KnowledgeSearcher, generator Generator, texts TextSender, cards CardSender) *Composer {
	return &Composer{
		conversations: conversations,
		listings:      listings,
		catalogs:      catalogs,
		knowledge:     know,
		generator:     generator,
		texts:         texts,
		cards:         cards,
		now:           time.Now,
	}
}

// Inbound is a persisted user message awaiting a reply.
type Inbound struct {
	Conversation *models.Conversation
	Created      bool // brand-new conversation
	Phone        string
	Text         string
	WamID        string
}

// Respond runs the reply pipeline. The user message is already persisted
// by the caller; any failure here loses at most the automated reply, never
// the bookkeeping.
func (c *Composer) Respond(ctx context.Context, in Inbound) error {
	// A fresh conversation gets exactly the welcome script: no intent
	// parsing, no catalog lookup, no generation.
	if in.Created {
		return c.texts.SendText(in.Phone, conversation.WelcomeMessage, in.WamID)
	}

	// Re-read the status right before replying; an escalation may have
	// landed while the message was being persisted.
	status, err := c.conversations.Status(in.Conversation.ID)
	if err != nil {
		return err
	}
	if status != models.StatusAI {
		log.Debug().Uint("conversation_id", in.Conversation.ID).Str("status", status).
			Msg("automation silent, conversation not in ai state")
		return nil
	}

	cardSent, cardTitle, matched := c.trySendCards(in)

	snippets, err := c.knowledge.Search(ctx, in.Text, 4)
	if err != nil {
		log.Error().Err(err).Msg("knowledge search failed, replying without snippets")
		snippets = nil
	}

	history, err := c.conversations.RecentMessages(in.Conversation.ID, historyLimit)
	if err != nil {
		return err
	}

	system := buildSystemPrompt(snippets, matched, cardSent, cardTitle)
	reply, err := c.generator.GenerateReply(ctx, system, history)
	if err != nil {
		return err
	}

	if _, err := c.conversations.AppendMessage(in.Conversation.ID, models.SenderAssistant, reply, ""); err != nil {
		return err
	}
	return c.texts.SendText(in.Phone, reply, in.WamID)
}

// trySendCards attempts the single-listing card and then the multi-listing
// availability list, in that order. Card failures are logged and the text
// reply proceeds as if no card was sent.
func (c *Composer) trySendCards(in Inbound) (cardSent bool, cardTitle string, matched []models.Finca) {
	if name, ok := intent.ParseSingleListing(in.Text); ok {
		fincas, err := c.listings.SearchByName(name)
		if err != nil {
			log.Error().Err(err).Str("term", name).Msg("listing search failed")
		} else if len(fincas) > 0 {
			finca := fincas[0]
			matched = []models.Finca{finca}
			if c.sendSingleCard(in, finca) {
				return true, finca.Name, matched
			}
		}
		// The single-listing pattern is greedy ("finca para melgar..."
		// matches too); when it produced no card, the availability check
		// still gets its turn.
	}

	if stay, ok := intent.ParseLocationAndDates(in.Text, c.now()); ok {
		fincas, err := c.listings.FindAvailable(stay.Location, stay.Entry, stay.Exit)
		if err != nil {
			log.Error().Err(err).Str("location", stay.Location).Msg("availability search failed")
			return false, "", nil
		}
		matched = fincas
		if len(fincas) > 0 && c.sendAvailabilityList(in, stay.Location, fincas) {
			return true, "", matched
		}
	}

	return false, "", matched
}

func (c *Composer) sendSingleCard(in Inbound, finca models.Finca) bool {
	cat, err := c.catalogs.Default()
	if err != nil {
		if !errors.Is(err, catalog.ErrNoCatalogs) {
			log.Error().Err(err).Msg("default catalog resolution failed")
		}
		return false
	}

	ids, err := c.catalogs.ProductIDs(cat.ID, []uint{finca.ID})
	if err != nil || len(ids) == 0 {
		if err != nil {
			log.Error().Err(err).Msg("product id lookup failed")
		}
		return false
	}

	body := "Aquí tienes la información de " + finca.Name + " 👇"
	if err := c.cards.SendCatalogCard(in.Phone, ids, body, cat.MetaCatalogID, in.WamID); err != nil {
		log.Error().Err(err).Uint("finca_id", finca.ID).Msg("catalog card send failed")
		return false
	}
	return true
}

func (c *Composer) sendAvailabilityList(in Inbound, location string, fincas []models.Finca) bool {
	cat, err := c.catalogs.ResolveForLocation(location)
	if err != nil {
		if !errors.Is(err, catalog.ErrNoCatalogs) {
			log.Error().Err(err).Str("location", location).Msg("catalog resolution failed")
		}
		return false
	}

	fincaIDs := make([]uint, 0, len(fincas))
	for _, f := range fincas {
		fincaIDs = append(fincaIDs, f.ID)
	}

	ids, err := c.catalogs.ProductIDs(cat.ID, fincaIDs)
	if err != nil {
		log.Error().Err(err).Msg("product id lookup failed")
		return false
	}

	// The location catalog may not list these fincas at all; retry against
	// the default catalog before giving up.
	if len(ids) == 0 {
		def, derr := c.catalogs.Default()
		if derr != nil || def.ID == cat.ID {
			return false
		}
		ids, err = c.catalogs.ProductIDs(def.ID, fincaIDs)
		if err != nil || len(ids) == 0 {
			return false
		}
		cat = def
	}

	body := "Estas son las fincas disponibles para tus fechas 👇"
	if err := c.cards.SendCatalogCard(in.Phone, ids, body, cat.MetaCatalogID, in.WamID); err != nil {
		log.Error().Err(err).Str("location", location).Msg("product list send failed")
		return false
	}
	return true
}
