// Package bot serves the Telegram command interface over long polling.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.uber.org/zap"

	"invest-bot/internal/config"
	"invest-bot/internal/metrics"
	"invest-bot/internal/models"
	"invest-bot/internal/repository"
)

const stopTimeout = 10 * time.Second

type UserStore interface {
	FindByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	FindByReferralCode(ctx context.Context, code string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	TouchActivity(ctx context.Context, id uint, at time.Time) error
	CountReferred(ctx context.Context, code string) (int64, error)
	FindAll(ctx context.Context, filter repository.UserFilter, p repository.Pagination) ([]models.User, repository.Page, error)
}

type PackageStore interface {
	FindAvailable(ctx context.Context) ([]models.Package, error)
	FindByID(ctx context.Context, id uint) (*models.Package, error)
}

type TransactionStore interface {
	FindAll(ctx context.Context, filter repository.TransactionFilter, p repository.Pagination) ([]models.Transaction, repository.Page, error)
	Purchase(ctx context.Context, userID, packageID uint) (*models.Transaction, error)
}

type LedgerStore interface {
	Ledger(ctx context.Context, userID uint, now time.Time) (repository.Ledger, error)
}

type Deps struct {
	Users        UserStore
	Packages     PackageStore
	Transactions TransactionStore
	Ledger       LedgerStore
	Log          *zap.Logger
	Metrics      *metrics.Metrics
}

type Bot struct {
	api          *telego.Bot
	users        UserStore
	packages     PackageStore
	transactions TransactionStore
	ledger       LedgerStore
	log          *zap.Logger
	metrics      *metrics.Metrics

	adminContact string
	username     string
	now          func() time.Time
}

// builder renders the reply for one command invocation.
type builder func(ctx context.Context, from telego.User, args []string) (reply, error)

func New(cfg config.Telegram, d Deps) (*Bot, error) {
	b := newBot(cfg, d)
	api, err := telego.NewBot(cfg.Token, telego.WithLogger(b.log.Sugar()))
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	b.api = api
	return b, nil
}

func newBot(cfg config.Telegram, d Deps) *Bot {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Bot{
		users:        d.Users,
		packages:     d.Packages,
		transactions: d.Transactions,
		ledger:       d.Ledger,
		log:          log,
		metrics:      d.Metrics,
		adminContact: cfg.AdminContact,
		now:          time.Now,
	}
}

// Run registers the command list and handles updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.api.SetMyCommands(ctx, &telego.SetMyCommandsParams{Commands: botCommands}); err != nil {
		b.log.Warn("Failed to set bot commands", zap.Error(err))
	}
	if me, err := b.api.GetMe(ctx); err == nil {
		b.username = me.Username
	}

	updates, err := b.api.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start long polling: %w", err)
	}

	handler, err := th.NewBotHandler(b.api, updates)
	if err != nil {
		return fmt.Errorf("failed to create update handler: %w", err)
	}
	b.register(handler)

	go func() {
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if err := handler.StopWithContext(stopCtx); err != nil {
			b.log.Warn("Bot handler did not stop cleanly", zap.Error(err))
		}
	}()

	b.log.Info("Bot started", zap.String("username", b.username))
	return handler.Start()
}

func (b *Bot) register(handler *th.BotHandler) {
	handler.Handle(b.onCommand("start", b.start), th.CommandEqual("start"))
	handler.Handle(b.onCommand("help", b.help), th.CommandEqual("help"))

	menu := map[string]builder{
		"packages":      b.listPackages,
		"portfolio":     b.portfolio,
		"balance":       b.balance,
		"claim":         b.claim,
		"referral":      b.referral,
		"profile":       b.profile,
		"history":       b.history,
		"referral_list": b.referralList,
	}
	for name, build := range menu {
		handler.Handle(b.onCommand(name, build), th.CommandEqual(name))
		handler.Handle(b.onCallback(name, build), th.CallbackDataEqual(name))
	}

	// Package callbacks carry the id as "buy:<id>".
	handler.Handle(b.onCallback(buyAction, b.confirmPurchase), th.CallbackDataPrefix(buyAction+":"))
	handler.Handle(b.onCallback(confirmBuyAction, b.purchase), th.CallbackDataPrefix(confirmBuyAction+":"))

	handler.Handle(b.onUnknownCallback, th.AnyCallbackQuery())
}

func (b *Bot) onCommand(name string, build builder) th.Handler {
	return func(ctx *th.Context, update telego.Update) error {
		msg := update.Message
		if msg == nil || msg.From == nil {
			return nil
		}
		_, _, args := tu.ParseCommand(msg.Text)

		r := b.run(ctx.Context(), name, *msg.From, args, build)
		return b.send(ctx, msg.Chat.ID, r)
	}
}

func (b *Bot) onCallback(name string, build builder) th.Handler {
	return func(ctx *th.Context, update telego.Update) error {
		query := update.CallbackQuery
		_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(query.ID))

		var args []string
		if _, arg, found := strings.Cut(query.Data, ":"); found {
			args = []string{arg}
		}
		r := b.run(ctx.Context(), name, query.From, args, build)
		return b.send(ctx, query.From.ID, r)
	}
}

func (b *Bot) onUnknownCallback(ctx *th.Context, update telego.Update) error {
	query := update.CallbackQuery
	b.metrics.CommandHandled("unknown", "rejected")
	return ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(query.ID).WithText(unknownCommandText))
}

// run builds the reply and swaps any failure for the generic error text.
func (b *Bot) run(ctx context.Context, name string, from telego.User, args []string, build builder) reply {
	r, err := build(ctx, from, args)
	if err != nil {
		b.log.Error("Bot command failed",
			zap.String("command", name),
			zap.Int64("telegram_id", from.ID),
			zap.Error(err),
		)
		b.metrics.CommandHandled(name, "error")
		return reply{text: errorText}
	}
	b.metrics.CommandHandled(name, "ok")
	return r
}

func (b *Bot) send(ctx *th.Context, chatID int64, r reply) error {
	params := tu.Message(tu.ID(chatID), r.text).WithParseMode(telego.ModeMarkdown)
	if r.keyboard != nil {
		params = params.WithReplyMarkup(r.keyboard)
	}
	if _, err := ctx.Bot().SendMessage(ctx.Context(), params); err != nil {
		b.log.Warn("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	return nil
}

// member loads the caller's account. A nil user means they never ran /start.
func (b *Bot) member(ctx context.Context, from telego.User) (*models.User, error) {
	user, err := b.users.FindByTelegramID(ctx, from.ID)
	if err != nil {
		return nil, err
	}
	if user != nil {
		if err := b.users.TouchActivity(ctx, user.ID, b.now()); err != nil {
			b.log.Warn("Failed to touch user activity", zap.Uint("user_id", user.ID), zap.Error(err))
		}
	}
	return user, nil
}

func (b *Bot) start(ctx context.Context, from telego.User, args []string) (reply, error) {
	user, err := b.member(ctx, from)
	if err != nil {
		return reply{}, err
	}

	if user == nil {
		user, err = b.enroll(ctx, from, args)
		if errors.Is(err, repository.ErrDuplicateTelegramID) {
			// The row exists but was deleted by an operator.
			return reply{text: deactivatedText(b.adminContact)}, nil
		}
		if err != nil {
			return reply{}, err
		}
	}
	if !user.IsActive {
		return reply{text: deactivatedText(b.adminContact)}, nil
	}

	return reply{text: welcomeText(user), keyboard: mainMenu()}, nil
}
