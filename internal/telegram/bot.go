package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"meal-planner/internal/app"
	"meal-planner/internal/clipper"
	"meal-planner/internal/config"
	"meal-planner/internal/logger"
	"meal-planner/internal/planner"
)

const commandTimeout = 30 * time.Second

// Bot wraps the Telegram API and the meal planner application.
type Bot struct {
	api *tgbotapi.BotAPI
	app *app.App
	cfg *config.Config
	log *logger.Logger
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(cfg *config.Config, a *app.App, log *logger.Logger) (*Bot, error) {
	if err := cfg.RequireTelegram(); err != nil {
		return nil, err
	}
	log = log.With("component", "telegram")
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	log.Info("Authorized on Telegram", "account", bot.Self.UserName)

	wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook for %s: %w", cfg.TelegramWebhookURL, err)
	}
	resp, err := bot.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	log.Info("Webhook set", "response", resp.Description)

	return &Bot{api: bot, app: a, cfg: cfg, log: log}, nil
}

// RegisterHandlers registers the webhook and health handlers on mux.
func (b *Bot) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", b.handleWebhook)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		b.log.Warn("Error parsing update", "error", err)
		return
	}

	if update.CallbackQuery != nil {
		if !b.cfg.IsAllowed(update.CallbackQuery.From.ID) {
			return
		}
		go b.handleCallbackQuery(update.CallbackQuery)
		return
	}

	if update.Message == nil || update.Message.From == nil {
		return
	}

	if !b.cfg.IsAllowed(update.Message.From.ID) {
		b.log.Warn("Unauthorized access attempt", "user_id", update.Message.From.ID, "username", update.Message.From.UserName)
		return
	}

	go b.processMessage(update.Message)
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	args := strings.TrimSpace(msg.CommandArguments())
	switch msg.Command() {
	case "metrics":
		if msg.From.ID != b.cfg.AdminTelegramID {
			b.reply(msg.Chat.ID, "⛔ *Accès refusé* : réservé à l'administrateur.")
			return
		}
		b.handleMetricsCommand(ctx, msg.Chat.ID)
	case "plan":
		b.handlePlanCommand(ctx, msg.Chat.ID, args)
	case "semaine":
		b.handleWeekCommand(ctx, msg.Chat.ID)
	case "annuler":
		b.handleUnplanCommand(ctx, msg.Chat.ID, args)
	case "liste":
		b.sendShoppingList(ctx, msg.Chat.ID, 0)
	case "actualiser":
		if _, err := b.app.RefreshShoppingList(ctx); err != nil {
			b.replyError(msg.Chat.ID, "Erreur lors de l'actualisation", err)
			return
		}
		b.sendShoppingList(ctx, msg.Chat.ID, 0)
	case "acheter":
		b.handleBuyCommand(ctx, msg.Chat.ID, args)
	case "modifier":
		b.handleEditCommand(ctx, msg.Chat.ID, args)
	case "importer":
		b.handleClipCommand(ctx, msg.Chat.ID, args)
	case "vider":
		if _, err := b.app.ResetShoppingList(ctx); err != nil {
			b.replyError(msg.Chat.ID, "Erreur lors de la remise à zéro", err)
			return
		}
		b.sendShoppingList(ctx, msg.Chat.ID, 0)
	case "recettes":
		b.handleRecipesCommand(ctx, msg.Chat.ID)
	case "supprimer":
		b.handleDeleteRecipeCommand(ctx, msg.Chat.ID, args)
	case "similaires":
		b.handleSimilarCommand(ctx, msg.Chat.ID, args)
	case "fusionner":
		b.handleMergeCommand(ctx, msg.Chat.ID, args)
	default:
		b.reply(msg.Chat.ID, helpText)
	}
}

func (b *Bot) handlePlanCommand(ctx context.Context, chatID int64, args string) {
	req, err := parsePlanArgs(args)
	if err != nil {
		b.reply(chatID, "Usage : `/plan <jour> <repas> <personnes> <recette>`\nEx. : `/plan lundi dîner 4 Pâtes à la tomate`")
		return
	}
	meal, rec, err := b.app.PlanMeal(ctx, req.recipe, req.day, req.mealType, req.headcount)
	switch {
	case errors.Is(err, app.ErrUnknownRecipe):
		b.reply(chatID, fmt.Sprintf("🤷 Aucune recette ne ressemble à *%s*.", escapeMarkdown(req.recipe)))
		return
	case errors.Is(err, app.ErrIncompleteRecipe):
		b.reply(chatID, fmt.Sprintf("📝 La recette *%s* n'a pas encore d'ingrédients.", escapeMarkdown(req.recipe)))
		return
	case err != nil && meal.ID == uuid.Nil:
		b.replyError(chatID, "Erreur lors de la planification", err)
		return
	case err != nil:
		b.log.Error("Meal planned but list refresh failed", "error", err)
	}
	b.reply(chatID, fmt.Sprintf("✅ *%s* planifié : %s, %s, %d pers.",
		escapeMarkdown(rec.Name), planner.DayName(meal.Day), meal.MealType.Label(), meal.Headcount))
}

func (b *Bot) handleWeekCommand(ctx context.Context, chatID int64) {
	week, err := b.app.WeekPlan(ctx)
	if err != nil {
		b.replyError(chatID, "Erreur lors de la lecture du planning", err)
		return
	}
	b.reply(chatID, formatWeekMarkdown(week))
}

func (b *Bot) handleUnplanCommand(ctx context.Context, chatID int64, args string) {
	var n int
	if _, err := fmt.Sscanf(args, "%d", &n); err != nil {
		b.reply(chatID, "Usage : `/annuler <numéro>` (voir /semaine)")
		return
	}
	week, err := b.app.WeekPlan(ctx)
	if err != nil {
		b.replyError(chatID, "Erreur lors de la lecture du planning", err)
		return
	}
	meal, ok := app.MealByNumber(week, n)
	if !ok {
		b.reply(chatID, fmt.Sprintf("Aucun repas n°%d.", n))
		return
	}
	if err := b.app.UnplanMeal(ctx, meal.ID); err != nil {
		b.replyError(chatID, "Erreur lors de l'annulation", err)
		return
	}
	b.reply(chatID, "🗑 Repas retiré du planning.")
}

func (b *Bot) handleBuyCommand(ctx context.Context, chatID int64, args string) {
	qty, name, err := parseQuantityArgs(args)
	if err != nil {
		b.reply(chatID, "Usage : `/acheter <quantité> <article>`")
		return
	}
	art, err := b.app.BuyArticle(ctx, name, qty)
	if errors.Is(err, app.ErrUnknownArticle) {
		b.reply(chatID, fmt.Sprintf("🤷 Article inconnu : *%s*.", escapeMarkdown(name)))
		if similar, err := b.app.SimilarArticles(ctx, name); err == nil && len(similar) > 0 {
			b.reply(chatID, formatSimilarMarkdown(name, similar))
		}
		return
	}
	if err != nil {
		b.replyError(chatID, "Erreur lors de l'ajout", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("🛒 *%s* ajouté à la liste.", escapeMarkdown(art.Name)))
}

func (b *Bot) handleClipCommand(ctx context.Context, chatID int64, args string) {
	if !strings.HasPrefix(args, "http://") && !strings.HasPrefix(args, "https://") {
		b.reply(chatID, "Usage : `/importer <url>`")
		return
	}
	b.reply(chatID, "⏳ Lecture de la recette...")
	res, err := b.app.ClipRecipe(ctx, args)
	if errors.Is(err, clipper.ErrNoRecipe) {
		b.reply(chatID, "🤷 Aucune recette trouvée sur cette page.")
		return
	}
	if err != nil {
		b.replyError(chatID, "Erreur lors de l'import", err)
		return
	}
	b.reply(chatID, formatClipResultMarkdown(res))
}

func (b *Bot) handleEditCommand(ctx context.Context, chatID int64, args string) {
	var n int
	var qty float64
	if _, err := fmt.Sscanf(strings.ReplaceAll(args, ",", "."), "%d %g", &n, &qty); err != nil {
		b.reply(chatID, "Usage : `/modifier <numéro> <quantité>` (voir /liste)")
		return
	}
	view, err := b.app.ShoppingList(ctx)
	if err != nil {
		b.replyError(chatID, "Erreur lors de la lecture de la liste", err)
		return
	}
	line, ok := view.Line(n)
	if !ok {
		b.reply(chatID, fmt.Sprintf("Aucune ligne n°%d.", n))
		return
	}
	if err := b.app.EditItem(ctx, line.ItemID, qty); err != nil {
		b.replyError(chatID, "Erreur lors de la modification", err)
		return
	}
	b.sendShoppingList(ctx, chatID, 0)
}

func (b *Bot) handleRecipesCommand(ctx context.Context, chatID int64) {
	recipes, err := b.app.Recipes(ctx)
	if err != nil {
		b.replyError(chatID, "Erreur lors de la lecture des recettes", err)
		return
	}
	b.reply(chatID, formatRecipesMarkdown(recipes))
}

func (b *Bot) handleDeleteRecipeCommand(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.reply(chatID, "Usage : `/supprimer <recette>`")
		return
	}
	rec, err := b.app.RemoveRecipe(ctx, args)
	if errors.Is(err, app.ErrUnknownRecipe) {
		b.reply(chatID, fmt.Sprintf("🤷 Aucune recette ne ressemble à *%s*.", escapeMarkdown(args)))
		return
	}
	if err != nil {
		b.replyError(chatID, "Erreur lors de la suppression", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("🗑 Recette *%s* supprimée.", escapeMarkdown(rec.Name)))
}

func (b *Bot) handleSimilarCommand(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.reply(chatID, "Usage : `/similaires <article>`")
		return
	}
	articles, err := b.app.SimilarArticles(ctx, args)
	if err != nil {
		b.replyError(chatID, "Erreur lors de la recherche", err)
		return
	}
	b.reply(chatID, formatSimilarMarkdown(args, articles))
}

func (b *Bot) handleMergeCommand(ctx context.Context, chatID int64, args string) {
	keepName, dupName, err := parseMergeArgs(args)
	if err != nil {
		b.reply(chatID, "Usage : `/fusionner <article> | <doublon>`")
		return
	}
	keep, dup, err := b.app.MergeArticles(ctx, keepName, dupName)
	switch {
	case errors.Is(err, app.ErrUnknownArticle):
		b.reply(chatID, "🤷 Les deux noms doivent correspondre exactement à un article (voir /similaires).")
		return
	case errors.Is(err, app.ErrSameArticle):
		b.reply(chatID, "Un article ne peut pas être fusionné avec lui-même.")
		return
	case err != nil && keep == nil:
		b.replyError(chatID, "Erreur lors de la fusion", err)
		return
	case err != nil:
		b.log.Error("Articles merged but list refresh failed", "error", err)
	}
	b.reply(chatID, fmt.Sprintf("🔗 *%s* fusionné dans *%s*.", escapeMarkdown(dup.Name), escapeMarkdown(keep.Name)))
}

// sendShoppingList sends the list, or edits messageID in place when non-zero.
func (b *Bot) sendShoppingList(ctx context.Context, chatID int64, messageID int) {
	view, err := b.app.ShoppingList(ctx)
	if err != nil {
		b.replyError(chatID, "Erreur lors de la lecture de la liste", err)
		return
	}
	text := formatShoppingListMarkdown(view)
	keyboard := shoppingListKeyboard(view)

	if messageID != 0 {
		edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
		edit.ParseMode = tgbotapi.ModeMarkdown
		if keyboard != nil {
			edit.ReplyMarkup = keyboard
		}
		b.send(edit)
		return
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}
	b.send(msg)
}

func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	// Answer callback to remove spinner
	b.api.Request(tgbotapi.NewCallback(query.ID, ""))

	action, itemID, err := parseCallbackData(query.Data)
	if err != nil {
		b.log.Warn("Ignoring callback", "data", query.Data, "error", err)
		return
	}
	if query.Message == nil {
		return
	}

	switch action {
	case callbackCheck:
		_, err = b.app.ToggleItem(ctx, itemID)
	case callbackRemove:
		err = b.app.RemoveItem(ctx, itemID)
	case callbackLess:
		_, err = b.app.NudgeItem(ctx, itemID, -1)
	case callbackMore:
		_, err = b.app.NudgeItem(ctx, itemID, 1)
	}
	if err != nil && !errors.Is(err, app.ErrUnknownItem) {
		b.replyError(query.Message.Chat.ID, "Erreur lors de la mise à jour", err)
		return
	}
	b.sendShoppingList(ctx, query.Message.Chat.ID, query.Message.MessageID)
}

func (b *Bot) handleMetricsCommand(ctx context.Context, chatID int64) {
	days, err := b.app.DailyRuns(ctx, 7)
	if err != nil {
		b.replyError(chatID, "Erreur lors de la lecture des métriques", err)
		return
	}
	b.reply(chatID, formatMetricsMarkdown(days, b.app.Health()))
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	b.send(msg)
}

func (b *Bot) replyError(chatID int64, what string, err error) {
	b.log.Error(what, "error", err)
	safeErr := strings.ReplaceAll(err.Error(), "`", "'")
	b.reply(chatID, fmt.Sprintf("❌ *%s :*\n```\n%v\n```", what, safeErr))
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.log.Warn("Failed to send Telegram message", "error", err)
	}
}
