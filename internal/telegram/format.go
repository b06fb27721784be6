package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"meal-planner/internal/app"
	"meal-planner/internal/catalog"
	"meal-planner/internal/metrics"
	"meal-planner/internal/planner"
)

const helpText = `🍽 *Planificateur de repas*

/plan <jour> <repas> <personnes> <recette> - planifier un repas
/semaine - voir le planning
/annuler <numéro> - retirer un repas
/liste - voir la liste de courses
/actualiser - recalculer la liste
/acheter <quantité> <article> - ajouter un article
/modifier <numéro> <quantité> - changer une quantité
/vider - repartir d'une liste neuve
/importer <url> - importer une recette depuis une page web
/recettes - voir les recettes disponibles
/supprimer <recette> - supprimer une recette
/similaires <article> - chercher les articles au nom proche
/fusionner <article> | <doublon> - fusionner deux articles`

const (
	callbackCheck  = "c"
	callbackRemove = "r"
	callbackLess   = "m"
	callbackMore   = "p"
)

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

type planRequest struct {
	day       int
	mealType  planner.MealType
	headcount int
	recipe    string
}

func parsePlanArgs(args string) (planRequest, error) {
	fields := strings.Fields(args)
	if len(fields) < 4 {
		return planRequest{}, errors.New("not enough arguments")
	}
	day, err := planner.ParseDay(fields[0])
	if err != nil {
		return planRequest{}, err
	}
	mealType, err := planner.ParseMealType(fields[1])
	if err != nil {
		return planRequest{}, err
	}
	headcount, err := strconv.Atoi(fields[2])
	if err != nil || headcount <= 0 {
		return planRequest{}, fmt.Errorf("invalid headcount %q", fields[2])
	}
	return planRequest{
		day:       day,
		mealType:  mealType,
		headcount: headcount,
		recipe:    strings.Join(fields[3:], " "),
	}, nil
}

// parseQuantityArgs splits "<quantity> <name...>"; a decimal comma is accepted.
func parseQuantityArgs(args string) (float64, string, error) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return 0, "", errors.New("not enough arguments")
	}
	qty, err := strconv.ParseFloat(strings.ReplaceAll(fields[0], ",", "."), 64)
	if err != nil || qty <= 0 {
		return 0, "", fmt.Errorf("invalid quantity %q", fields[0])
	}
	return qty, strings.Join(fields[1:], " "), nil
}

// parseMergeArgs splits "<kept> | <duplicate>"; both names may hold spaces.
func parseMergeArgs(args string) (string, string, error) {
	keep, dup, ok := strings.Cut(args, "|")
	keep, dup = strings.TrimSpace(keep), strings.TrimSpace(dup)
	if !ok || keep == "" || dup == "" {
		return "", "", errors.New("expected two names separated by |")
	}
	return keep, dup, nil
}

func callbackData(action string, itemID uuid.UUID) string {
	return action + "|" + itemID.String()
}

func parseCallbackData(data string) (string, uuid.UUID, error) {
	action, rawID, ok := strings.Cut(data, "|")
	if !ok {
		return "", uuid.Nil, fmt.Errorf("unknown callback %q", data)
	}
	switch action {
	case callbackCheck, callbackRemove, callbackLess, callbackMore:
	default:
		return "", uuid.Nil, fmt.Errorf("unknown callback %q", data)
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("invalid item id: %w", err)
	}
	return action, id, nil
}

func formatShoppingListMarkdown(v *app.ShoppingView) string {
	if v.Len() == 0 {
		return "🛒 *Liste de courses*\n\n_La liste est vide._"
	}

	var sb strings.Builder
	sb.WriteString("🛒 *Liste de courses*\n")
	for _, s := range v.Sections {
		sb.WriteString(fmt.Sprintf("\n*%s*\n", escapeMarkdown(s.Category)))
		for _, l := range s.Lines {
			box := "⬜"
			if l.Checked {
				box = "✅"
			}
			line := fmt.Sprintf("%s %d. %s : %s", box, l.Number, escapeMarkdown(l.Name), l.Amount)
			if l.Manual {
				line += " ✍️"
			}
			sb.WriteString(line + "\n")
		}
	}
	return sb.String()
}

func shoppingListKeyboard(v *app.ShoppingView) *tgbotapi.InlineKeyboardMarkup {
	if v.Len() == 0 {
		return nil
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, s := range v.Sections {
		for _, l := range s.Lines {
			label := fmt.Sprintf("⬜ %d. %s", l.Number, l.Name)
			if l.Checked {
				label = fmt.Sprintf("✅ %d. %s", l.Number, l.Name)
			}
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(label, callbackData(callbackCheck, l.ItemID)),
				tgbotapi.NewInlineKeyboardButtonData("➖", callbackData(callbackLess, l.ItemID)),
				tgbotapi.NewInlineKeyboardButtonData("➕", callbackData(callbackMore, l.ItemID)),
				tgbotapi.NewInlineKeyboardButtonData("🗑", callbackData(callbackRemove, l.ItemID)),
			))
		}
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &keyboard
}

func formatRecipesMarkdown(recipes []catalog.Recipe) string {
	if len(recipes) == 0 {
		return "📖 _Aucune recette disponible._"
	}
	var sb strings.Builder
	sb.WriteString("📖 *Recettes*\n")
	for _, r := range recipes {
		fmt.Fprintf(&sb, "\n• %s (%d ingr.)", escapeMarkdown(r.Name), len(r.Ingredients))
	}
	return sb.String()
}

func formatSimilarMarkdown(name string, articles []catalog.Article) string {
	if len(articles) == 0 {
		return fmt.Sprintf("🤷 Aucun article proche de *%s*.", escapeMarkdown(name))
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "🔎 Articles proches de *%s* :", escapeMarkdown(name))
	for _, a := range articles {
		fmt.Fprintf(&sb, "\n• %s (%s)", escapeMarkdown(a.Name), escapeMarkdown(a.Unit))
	}
	return sb.String()
}

func formatWeekMarkdown(week []app.DayPlan) string {
	var sb strings.Builder
	sb.WriteString("📅 *Planning de la semaine*\n")
	n := 0
	for _, d := range week {
		if len(d.Meals) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("\n*%s*\n", d.Name))
		for _, l := range d.Meals {
			n++
			sb.WriteString(fmt.Sprintf("%d. _%s_ : %s (%d pers.)\n", n, l.Meal.MealType.Label(), escapeMarkdown(l.RecipeName), l.Meal.Headcount))
		}
	}
	if n == 0 {
		sb.WriteString("\n_Aucun repas planifié._")
	}
	return sb.String()
}

func formatMetricsMarkdown(days []metrics.DailyRuns, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Activité et santé*\n\n")

	sb.WriteString("🗓 *Recalculs de la liste*\n")
	if len(days) == 0 {
		sb.WriteString("_Pas encore de données_\n")
	}
	for _, d := range days {
		sb.WriteString(fmt.Sprintf("• *%s* : %d recalculs, +%d / -%d articles, %d repas ignorés (%.0f ms moy.)\n",
			d.Date, d.Runs, d.Created, d.Removed, d.SkippedMeals, d.AvgLatencyMS))
	}

	sb.WriteString("\n🧠 *Système*\n")
	sb.WriteString(fmt.Sprintf("• RAM : %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines : %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Données : %s\n", health.DataDiskSize()))
	return sb.String()
}

func formatClipResultMarkdown(res *app.ClipResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📥 *%s* importée avec %d ingrédient(s).", escapeMarkdown(res.Recipe.Name), len(res.Recipe.Ingredients))
	if len(res.Unmatched) > 0 {
		sb.WriteString("\n\nIngrédients non reconnus :")
		for _, line := range res.Unmatched {
			fmt.Fprintf(&sb, "\n• %s", escapeMarkdown(line))
		}
	}
	return sb.String()
}
