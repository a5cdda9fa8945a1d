package composer

import (
	"fmt"
	"strings"

	"github.com/factoryia/fincasya-new/internal/knowledge"
	"github.com/factoryia/fincasya-new/internal/models"
)

const basePrompt = `Eres el asistente de FincasYa, una empresa colombiana de alquiler de fincas de descanso.
Respondes por WhatsApp: tono cercano, mensajes cortos, máximo un emoji.
Nunca inventes fincas, precios ni disponibilidad que no estén en el contexto.
El saludo de bienvenida ya fue enviado; no lo repitas ni te vuelvas a presentar.`

func buildSystemPrompt(snippets []knowledge.Snippet, fincas []models.Finca, cardSent bool, cardTitle string) string {
	var b strings.Builder
	b.WriteString(basePrompt)

	if len(snippets) > 0 {
		b.WriteString("\n\nInformación de la empresa:\n")
		for _, s := range snippets {
			if s.Title != "" {
				b.WriteString("- " + s.Title + ": " + s.Content + "\n")
			} else {
				b.WriteString("- " + s.Content + "\n")
			}
		}
	}

	if len(fincas) > 0 {
		b.WriteString("\nFincas relevantes para este mensaje:\n")
		for _, f := range fincas {
			b.WriteString(fmt.Sprintf("- %s (%s): capacidad %d personas, desde $%d COP por noche.",
				f.Name, f.Location, f.Capacity, f.PriceBase))
			if f.Description != "" {
				b.WriteString(" " + f.Description)
			}
			b.WriteString("\n")
		}
	}

	if cardSent {
		if cardTitle != "" {
			b.WriteString("\nYa se le envió al cliente la tarjeta de catálogo de " + cardTitle +
				". Sé muy breve, no repitas precios ni detalles de la tarjeta y no preguntes por fechas.")
		} else {
			b.WriteString("\nYa se le envió al cliente la lista de fincas disponibles en el catálogo." +
				" Sé muy breve y no repitas lo que muestra la lista.")
		}
	}

	return b.String()
}
