package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"invest-bot/internal/models"
	"invest-bot/internal/repository"
)

const (
	historyLimit  = 20
	referralLimit = 20

	noHistoryText = `📋 *Riwayat Transaksi*

Anda belum memiliki transaksi apapun.
Mulai investasi sekarang untuk melihat riwayat transaksi!`

	noReferralsText = `👥 *Daftar Referral*

Anda belum memiliki referral.
Bagikan referral code Anda kepada teman untuk mendapatkan bonus!`
)

var statusEmoji = map[models.TransactionStatus]string{
	models.StatusCompleted: "✅",
	models.StatusPending:   "⏳",
	models.StatusFailed:    "❌",
	models.StatusCancelled: "🚫",
}

func (b *Bot) history(ctx context.Context, from telego.User, _ []string) (reply, error) {
	user, err := b.member(ctx, from)
	if err != nil || user == nil {
		return unknownUser(err)
	}
	txs, page, err := b.transactions.FindAll(ctx,
		repository.TransactionFilter{UserID: &user.ID},
		repository.Pagination{Limit: historyLimit},
	)
	if err != nil {
		return reply{}, err
	}
	if len(txs) == 0 {
		return reply{text: noHistoryText, keyboard: tu.InlineKeyboard(tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("📦 Lihat Paket").WithCallbackData("packages"),
		))}, nil
	}

	// A Caser is stateful and not shared between updates.
	title := cases.Title(language.Indonesian)
	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 *Riwayat Transaksi*\n\nTotal: %d transaksi\n\n", page.Total)
	for i, tx := range txs {
		emoji, ok := statusEmoji[tx.Status]
		if !ok {
			emoji = "❓"
		}
		description := tx.Description
		if description == "" {
			description = "Tidak ada deskripsi"
		}
		fmt.Fprintf(&sb, "*%d. %s*\n", i+1, title.String(string(tx.Type)))
		fmt.Fprintf(&sb, "%s Status: %s\n", emoji, tx.Status)
		fmt.Fprintf(&sb, "💰 Jumlah: %s\n", rupiah(tx.Amount))
		fmt.Fprintf(&sb, "📅 Tanggal: %s\n", tx.CreatedAt.Format("02/01/2006 15:04"))
		fmt.Fprintf(&sb, "📝 Deskripsi: %s\n\n", escape(description))
	}
	if page.Total > int64(len(txs)) {
		fmt.Fprintf(&sb, "Menampilkan %d transaksi terbaru.", len(txs))
	}
	return reply{text: strings.TrimRight(sb.String(), "\n")}, nil
}

func (b *Bot) referralList(ctx context.Context, from telego.User, _ []string) (reply, error) {
	user, err := b.member(ctx, from)
	if err != nil || user == nil {
		return unknownUser(err)
	}
	referred, page, err := b.users.FindAll(ctx,
		repository.UserFilter{ReferredBy: user.ReferralCode},
		repository.Pagination{Limit: referralLimit},
	)
	if err != nil {
		return reply{}, err
	}
	back := tu.InlineKeyboard(tu.InlineKeyboardRow(
		tu.InlineKeyboardButton("🔙 Kembali").WithCallbackData("referral"),
	))
	if len(referred) == 0 {
		return reply{text: noReferralsText, keyboard: back}, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "👥 *Daftar Referral Anda*\n\nTotal: %d referral\n\n", page.Total)
	for i, u := range referred {
		name := u.FirstName
		if name == "" {
			name = u.Username
		}
		if name == "" {
			name = "User"
		}
		status := "Tidak Aktif"
		if u.IsActive {
			status = "Aktif"
		}
		fmt.Fprintf(&sb, "*%d. %s*\n", i+1, escape(name))
		fmt.Fprintf(&sb, "📅 Bergabung: %s\n", u.CreatedAt.Format("02/01/2006"))
		fmt.Fprintf(&sb, "📊 Status: %s\n\n", status)
	}
	return reply{text: strings.TrimRight(sb.String(), "\n"), keyboard: back}, nil
}
