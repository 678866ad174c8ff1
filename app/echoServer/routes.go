package echoServer

import (
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"booklend/app/echoServer/controller/admin"
	"booklend/app/echoServer/controller/auth"
	"booklend/app/echoServer/controller/book"
	"booklend/app/echoServer/controller/favorite"
	"booklend/app/echoServer/controller/fine"
	"booklend/app/echoServer/controller/loan"
	"booklend/app/echoServer/controller/notification"
	"booklend/app/echoServer/controller/recommend"
	"booklend/app/echoServer/controller/review"
	"booklend/app/echoServer/controller/waitlist"
)

type C struct {
	Auth         *auth.Controller
	Book         *book.Controller
	Loan         *loan.Controller
	Waitlist     *waitlist.Controller
	Fine         *fine.Controller
	Favorite     *favorite.Controller
	Review       *review.Controller
	Notification *notification.Controller
	Recommend    *recommend.Controller
	Admin        *admin.Controller
	JWTSecret    string
}

func Register(e *echo.Echo, c C) {
	// Public
	pub := e.Group("/v1")
	pub.POST("/users/register", c.Auth.Register)
	pub.POST("/users/login", c.Auth.Login)

	// Auth
	authed := e.Group("/v1")
	authed.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(c.JWTSecret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims { return jwt.MapClaims{} },
		TokenLookup:   "header:Authorization",
	}))
	authed.Use(ExtractUser())

	// Catalog
	authed.GET("/books", c.Book.List)
	authed.GET("/books/:id", c.Book.Detail)
	authed.GET("/books/:id/reviews", c.Review.ListForBook)
	authed.POST("/books", c.Book.Create)
	authed.POST("/books/:id/copies", c.Book.AddCopies)
	authed.DELETE("/books/:id/copies", c.Book.DeleteOwned)

	// Loans
	authed.POST("/loans", c.Loan.Borrow)
	authed.POST("/loans/:id/return", c.Loan.Return)
	authed.POST("/loans/:id/renew", c.Loan.Renew)

	// Waitlist
	authed.POST("/waitlist", c.Waitlist.Join)
	authed.DELETE("/waitlist/:id", c.Waitlist.Cancel)

	// Fines
	authed.POST("/fines/:id/pay", c.Fine.Pay)

	// Favorites
	authed.POST("/favorites", c.Favorite.Add)
	authed.DELETE("/favorites/:bookId", c.Favorite.Remove)
	authed.GET("/favorites/check/:bookId", c.Favorite.Check)

	// Reviews
	authed.POST("/reviews", c.Review.Add)
	authed.PUT("/reviews/:id", c.Review.Update)
	authed.DELETE("/reviews/:id", c.Review.Delete)

	// Recommendations
	authed.GET("/recommendations", c.Recommend.Recommend)

	// Me
	authed.GET("/users/me/loans", c.Loan.MyHistory)
	authed.GET("/users/me/books", c.Book.MyBooks)
	authed.GET("/users/me/waitlist", c.Waitlist.MyWaitlist)
	authed.GET("/users/me/fines", c.Fine.MyFines)
	authed.GET("/users/me/favorites", c.Favorite.ListMine)
	authed.GET("/users/me/notifications", c.Notification.Inbox)

	// Admin
	adm := authed.Group("/admin", RequireRole("admin"))
	adm.GET("/stats", c.Admin.Overview)
	adm.GET("/stats/categories", c.Admin.CategoryStats)
	adm.GET("/stats/top-books", c.Admin.TopBooks)
	adm.GET("/loans", c.Admin.LoanRecords)
}
