package handler

import "github.com/gofiber/fiber/v2"

// Register mounts every route on router. Routes other than the public ones
// and /api/auth run behind guard when it is set. The catch-all 404 is left
// to the caller so it can be mounted after static files.
func (h *Handler) Register(router fiber.Router, guard fiber.Handler) {
	router.Get("/", h.Root)
	router.Get("/health", h.Health)

	authGroup := router.Group("/api/auth")
	authGroup.Post("/login", h.Login)
	authGroup.Post("/refresh", h.Refresh)
	authGroup.Get("/me", h.Me)

	var api fiber.Router
	if guard != nil {
		api = router.Group("/api", guard)
	} else {
		api = router.Group("/api")
	}

	users := api.Group("/users")
	users.Get("/", h.ListUsers)
	users.Get("/stats", h.UserStats)
	users.Get("/telegram/:telegramId", h.GetUserByTelegramID)
	users.Get("/referral/:referralCode", h.GetUserByReferralCode)
	users.Get("/:id", h.GetUser)
	users.Post("/", h.CreateUser)
	users.Put("/:id", h.UpdateUser)
	users.Delete("/:id", h.DeleteUser)
	users.Post("/:id/restore", h.RestoreUser)

	packages := api.Group("/packages")
	packages.Get("/", h.ListPackages)
	packages.Get("/active", h.ActivePackages)
	packages.Get("/available", h.AvailablePackages)
	packages.Get("/stats", h.PackageStats)
	packages.Get("/:id", h.GetPackage)
	packages.Post("/", h.CreatePackage)
	packages.Put("/:id", h.UpdatePackage)
	packages.Delete("/:id", h.DeletePackage)
	packages.Post("/:id/toggle", h.TogglePackage)
	packages.Post("/:id/restore", h.RestorePackage)

	txs := api.Group("/transactions")
	txs.Get("/", h.ListTransactions)
	txs.Get("/stats/summary", h.TransactionSummary)
	txs.Get("/user/:userId", h.UserTransactions)
	txs.Get("/:id", h.GetTransaction)
	txs.Post("/", h.CreateTransaction)
	txs.Put("/:id", h.UpdateTransaction)

	admin := api.Group("/admin")
	admin.Get("/dashboard", h.Dashboard)
	admin.Get("/users", h.AdminUsers)
	admin.Get("/packages", h.AdminPackages)
	admin.Get("/analytics", h.Analytics)
	admin.Get("/system", h.System)

	upload := api.Group("/upload")
	upload.Post("/image", h.UploadImage)
	upload.Post("/base64", h.UploadBase64)
}
