package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"meal-planner/internal/app"
	"meal-planner/internal/config"
	"meal-planner/internal/logger"
	"meal-planner/internal/planner"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	application, err := app.Bootstrap(cfg, log, nil)
	if err != nil {
		log.Fatal("Failed to initialize application", "error", err)
	}
	defer application.Close()

	if err := run(context.Background(), application, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", os.Args[1], err)
		application.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App, command string, args []string) error {
	switch command {
	case "import":
		if len(args) != 1 {
			return fmt.Errorf("usage: import <catalog.json>")
		}
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		summary, err := a.ImportCatalog(ctx, f)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d articles and %d recipes.\n", summary.Articles, summary.Recipes)

	case "clip":
		if len(args) != 1 {
			return fmt.Errorf("usage: clip <url>")
		}
		res, err := a.ClipRecipe(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Imported %q with %d ingredients.\n", res.Recipe.Name, len(res.Recipe.Ingredients))
		for _, line := range res.Unmatched {
			fmt.Printf("  unmatched: %s\n", line)
		}

	case "plan":
		if len(args) < 4 {
			return fmt.Errorf("usage: plan <day> <meal> <headcount> <recipe...>")
		}
		day, err := planner.ParseDay(args[0])
		if err != nil {
			return err
		}
		mealType, err := planner.ParseMealType(args[1])
		if err != nil {
			return err
		}
		headcount, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid headcount %q", args[2])
		}
		meal, rec, err := a.PlanMeal(ctx, strings.Join(args[3:], " "), day, mealType, headcount)
		if err != nil {
			return err
		}
		fmt.Printf("Planned %s for %s %s (%d pers.).\n", rec.Name, planner.DayName(meal.Day), meal.MealType.Label(), meal.Headcount)

	case "unplan":
		n, err := numberArg(args)
		if err != nil {
			return err
		}
		week, err := a.WeekPlan(ctx)
		if err != nil {
			return err
		}
		meal, ok := app.MealByNumber(week, n)
		if !ok {
			return fmt.Errorf("no meal number %d", n)
		}
		if err := a.UnplanMeal(ctx, meal.ID); err != nil {
			return err
		}
		fmt.Println("Meal removed.")

	case "clear":
		if err := a.ClearPlan(ctx); err != nil {
			return err
		}
		fmt.Println("Plan cleared.")

	case "meals":
		week, err := a.WeekPlan(ctx)
		if err != nil {
			return err
		}
		fmt.Print(app.FormatWeek(week))

	case "list":
		return printList(ctx, a)

	case "refresh":
		changes, err := a.RefreshShoppingList(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%d added, %d updated, %d collapsed, %d removed.\n",
			len(changes.Created), len(changes.Updated), len(changes.Collapsed), len(changes.Removed))
		return printList(ctx, a)

	case "buy":
		if len(args) < 2 {
			return fmt.Errorf("usage: buy <quantity> <article...>")
		}
		qty, err := strconv.ParseFloat(strings.ReplaceAll(args[0], ",", "."), 64)
		if err != nil {
			return fmt.Errorf("invalid quantity %q", args[0])
		}
		art, err := a.BuyArticle(ctx, strings.Join(args[1:], " "), qty)
		if err != nil {
			return err
		}
		fmt.Printf("Added %s.\n", art.Name)

	case "edit", "check", "remove", "more", "less":
		return editLine(ctx, a, command, args)

	case "reset-list":
		if _, err := a.ResetShoppingList(ctx); err != nil {
			return err
		}
		return printList(ctx, a)

	case "recipes":
		recipes, err := a.Recipes(ctx)
		if err != nil {
			return err
		}
		for _, rec := range recipes {
			fmt.Printf("%s (%d ingredients)\n", rec.Name, len(rec.Ingredients))
		}

	case "delete-recipe":
		if len(args) == 0 {
			return fmt.Errorf("usage: delete-recipe <recipe...>")
		}
		rec, err := a.RemoveRecipe(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %s.\n", rec.Name)

	case "similar":
		if len(args) == 0 {
			return fmt.Errorf("usage: similar <article...>")
		}
		articles, err := a.SimilarArticles(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		if len(articles) == 0 {
			fmt.Println("No similar article.")
		}
		for _, art := range articles {
			fmt.Printf("%s (%s, %s)\n", art.Name, art.Category, art.Unit)
		}

	case "merge-articles":
		if len(args) != 2 {
			return fmt.Errorf("usage: merge-articles <keep> <duplicate>")
		}
		keep, dup, err := a.MergeArticles(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Merged %s into %s.\n", dup.Name, keep.Name)

	case "metrics-cleanup":
		cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := cleanupCmd.Int("days", 30, "Keep records for the last N days")
		cleanupCmd.Parse(args)

		affected, err := a.CleanupMetrics(ctx, *days)
		if err != nil {
			return err
		}
		fmt.Printf("Successfully removed %d old metric records.\n", affected)

	default:
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
	return nil
}

func editLine(ctx context.Context, a *app.App, command string, args []string) error {
	n, err := numberArg(args)
	if err != nil {
		return err
	}
	view, err := a.ShoppingList(ctx)
	if err != nil {
		return err
	}
	line, ok := view.Line(n)
	if !ok {
		return fmt.Errorf("no line number %d", n)
	}

	switch command {
	case "edit":
		if len(args) != 2 {
			return fmt.Errorf("usage: edit <line> <quantity>")
		}
		qty, err := strconv.ParseFloat(strings.ReplaceAll(args[1], ",", "."), 64)
		if err != nil {
			return fmt.Errorf("invalid quantity %q", args[1])
		}
		err = a.EditItem(ctx, line.ItemID, qty)
		if err != nil {
			return err
		}
	case "check":
		if _, err := a.ToggleItem(ctx, line.ItemID); err != nil {
			return err
		}
	case "remove":
		if err := a.RemoveItem(ctx, line.ItemID); err != nil {
			return err
		}
	case "more", "less":
		direction := 1
		if command == "less" {
			direction = -1
		}
		if _, err := a.NudgeItem(ctx, line.ItemID, direction); err != nil {
			return err
		}
	}
	return printList(ctx, a)
}

func printList(ctx context.Context, a *app.App) error {
	view, err := a.ShoppingList(ctx)
	if err != nil {
		return err
	}
	fmt.Print(view.String())
	return nil
}

func numberArg(args []string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("missing line number")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", args[0])
	}
	return n, nil
}

func printUsage() {
	fmt.Println("Usage: meal-planner <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  import <file>                       Import articles and recipes from JSON")
	fmt.Println("  clip <url>                          Import a recipe from a web page")
	fmt.Println("  plan <day> <meal> <n> <recipe>      Plan a recipe for n people")
	fmt.Println("  unplan <number>                     Remove a planned meal (see meals)")
	fmt.Println("  clear                               Remove every planned meal")
	fmt.Println("  meals                               Show the week plan")
	fmt.Println("  list                                Show the shopping list")
	fmt.Println("  refresh                             Recompute the shopping list")
	fmt.Println("  buy <quantity> <article>            Add an article by hand")
	fmt.Println("  edit <line> <quantity>              Change a line's quantity")
	fmt.Println("  check <line>                        Toggle a line as bought")
	fmt.Println("  remove <line>                       Delete a line")
	fmt.Println("  more <line> / less <line>           Nudge a line's quantity by one step")
	fmt.Println("  reset-list                          Drop the list and rebuild it from the plan")
	fmt.Println("  recipes                             List the recipes that can be planned")
	fmt.Println("  delete-recipe <recipe>              Delete a recipe and its planned meals")
	fmt.Println("  similar <article>                   Show articles with a close name")
	fmt.Println("  merge-articles <keep> <duplicate>   Fold a duplicate article into another")
	fmt.Println("  metrics-cleanup [-days N]           Remove old reconciliation records")
}
