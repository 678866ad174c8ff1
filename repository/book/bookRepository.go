package book

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jmoiron/sqlx"

	"booklend/model"
)

var dialect = goqu.Dialect("postgres")

// freeCopy matches copies with no open loan; availability is always derived
// from loan state, never stored.
const freeCopy = `NOT EXISTS (SELECT 1 FROM loans l WHERE l.copy_id = c.id AND l.return_at IS NULL)`

type SearchFilter struct {
	Query    string
	Category string
	Author   string
	Limit    int
	Offset   int
}

type SearchRow struct {
	ID              int64     `db:"id" json:"id"`
	Title           string    `db:"title" json:"title"`
	Author          *string   `db:"author" json:"author,omitempty"`
	ISBN            *string   `db:"isbn" json:"isbn,omitempty"`
	Category        *string   `db:"category" json:"category,omitempty"`
	Condition       *string   `db:"condition" json:"condition,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	AvailableCopies int64     `db:"available_copies" json:"available_copies"`
}

type DetailRow struct {
	SearchRow
	TotalCopies   int64    `db:"total_copies" json:"total_copies"`
	TimesBorrowed int64    `db:"times_borrowed" json:"times_borrowed"`
	AverageRating *float64 `db:"average_rating" json:"average_rating,omitempty"`
}

type MyBookRow struct {
	ID              int64     `db:"id" json:"id"`
	Title           string    `db:"title" json:"title"`
	Author          *string   `db:"author" json:"author,omitempty"`
	ISBN            *string   `db:"isbn" json:"isbn,omitempty"`
	Category        *string   `db:"category" json:"category,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	TotalCopies     int64     `db:"total_copies" json:"total_copies"`
	AvailableCopies int64     `db:"available_copies" json:"available_copies"`
}

type PopularRow struct {
	BookID          int64   `db:"book_id" json:"book_id"`
	Title           string  `db:"title" json:"title"`
	Author          *string `db:"author" json:"author,omitempty"`
	Category        *string `db:"category" json:"category,omitempty"`
	ISBN            *string `db:"isbn" json:"isbn,omitempty"`
	PredictedRating float64 `db:"predicted_rating" json:"predicted_rating"`
	Popularity      int64   `db:"popularity" json:"popularity"`
}

type Repo interface {
	Exists(ctx context.Context, bookID int64) (bool, error)
	TitleTx(ctx context.Context, tx *sqlx.Tx, bookID int64) (string, error)
	ISBNExistsTx(ctx context.Context, tx *sqlx.Tx, isbn string) (bool, error)
	Create(ctx context.Context, tx *sqlx.Tx, b *model.Book) (int64, error)
	InsertCopy(ctx context.Context, tx *sqlx.Tx, bookID, ownerID int64) (int64, error)
	InitStatistics(ctx context.Context, tx *sqlx.Tx, bookID int64) error
	IncrementTimesBorrowed(ctx context.Context, tx *sqlx.Tx, bookID int64) error

	Search(ctx context.Context, f SearchFilter) ([]SearchRow, int64, error)
	Detail(ctx context.Context, bookID int64) (*DetailRow, error)
	MyBooks(ctx context.Context, ownerID int64) ([]MyBookRow, error)

	OwnedCopyCount(ctx context.Context, tx *sqlx.Tx, bookID, ownerID int64) (int64, error)
	OwnedCopiesOnLoan(ctx context.Context, tx *sqlx.Tx, bookID, ownerID int64) (int64, error)
	RemoveOwnedCopies(ctx context.Context, tx *sqlx.Tx, bookID, ownerID int64) error
	RemainingCopies(ctx context.Context, tx *sqlx.Tx, bookID int64) (int64, error)
	DeleteBook(ctx context.Context, tx *sqlx.Tx, bookID int64) error

	PopularAvailable(ctx context.Context, userID int64, limit int) ([]PopularRow, error)
}

type repo struct{ db *sqlx.DB }

func New(db *sqlx.DB) Repo { return &repo{db} }

func (r *repo) Exists(ctx context.Context, bookID int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM books WHERE id = $1)`
	var exists bool
	err := r.db.QueryRowContext(ctx, q, bookID).Scan(&exists)
	return exists, err
}

func (r *repo) TitleTx(ctx context.Context, tx *sqlx.Tx, bookID int64) (string, error) {
	const q = `SELECT title FROM books WHERE id = $1`
	var title string
	err := tx.QueryRowContext(ctx, q, bookID).Scan(&title)
	return title, err
}

func (r *repo) ISBNExistsTx(ctx context.Context, tx *sqlx.Tx, isbn string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM books WHERE isbn = $1)`
	var exists bool
	err := tx.QueryRowContext(ctx, q, isbn).Scan(&exists)
	return exists, err
}

func (r *repo) Create(ctx context.Context, tx *sqlx.Tx, b *model.Book) (int64, error) {
	const q = `
		INSERT INTO books (title, author, isbn, category, condition)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	if err := tx.QueryRowContext(ctx, q, b.Title, b.Author, b.ISBN, b.Category, b.Condition).
		Scan(&b.ID, &b.CreatedAt); err != nil {
		return 0, err
	}
	return b.ID, nil
}

func (r *repo) InsertCopy(ctx context.Context, tx *sqlx.Tx, bookID, ownerID int64) (int64, error) {
	const q = `
		INSERT INTO copies (book_id, owner_id, copy_number)
		VALUES ($1, $2, (SELECT COALESCE(MAX(copy_number), 0) + 1 FROM copies WHERE book_id = $1))
		RETURNING id`
	var id int64
	if err := tx.QueryRowContext(ctx, q, bookID, ownerID).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repo) InitStatistics(ctx context.Context, tx *sqlx.Tx, bookID int64) error {
	const q = `
		INSERT INTO book_statistics (book_id, times_borrowed)
		VALUES ($1, 0)
		ON CONFLICT (book_id) DO NOTHING`
	_, err := tx.ExecContext(ctx, q, bookID)
	return err
}

func (r *repo) IncrementTimesBorrowed(ctx context.Context, tx *sqlx.Tx, bookID int64) error {
	const q = `
		INSERT INTO book_statistics (book_id, times_borrowed)
		VALUES ($1, 1)
		ON CONFLICT (book_id) DO UPDATE SET times_borrowed = book_statistics.times_borrowed + 1`
	_, err := tx.ExecContext(ctx, q, bookID)
	return err
}

func (r *repo) searchBase(f SearchFilter) *goqu.SelectDataset {
	ds := dialect.From(goqu.T("books").As("b")).
		InnerJoin(goqu.T("copies").As("c"), goqu.On(goqu.I("c.book_id").Eq(goqu.I("b.id")))).
		Where(goqu.I("c.removed_at").IsNull()).
		Where(goqu.L(freeCopy))

	if f.Query != "" {
		pat := "%" + f.Query + "%"
		ds = ds.Where(goqu.Or(
			goqu.I("b.title").ILike(pat),
			goqu.I("b.author").ILike(pat),
			goqu.I("b.isbn").ILike(pat),
		))
	}
	if f.Category != "" {
		ds = ds.Where(goqu.I("b.category").Eq(f.Category))
	}
	if f.Author != "" {
		ds = ds.Where(goqu.I("b.author").ILike("%" + f.Author + "%"))
	}
	return ds
}

func (r *repo) Search(ctx context.Context, f SearchFilter) ([]SearchRow, int64, error) {
	query, args, err := r.searchBase(f).
		Select(
			goqu.I("b.id"), goqu.I("b.title"), goqu.I("b.author"), goqu.I("b.isbn"),
			goqu.I("b.category"), goqu.I("b.condition"), goqu.I("b.created_at"),
			goqu.COUNT(goqu.I("c.id")).As("available_copies"),
		).
		GroupBy(
			goqu.I("b.id"), goqu.I("b.title"), goqu.I("b.author"), goqu.I("b.isbn"),
			goqu.I("b.category"), goqu.I("b.condition"), goqu.I("b.created_at"),
		).
		Order(goqu.I("b.created_at").Desc()).
		Limit(uint(f.Limit)).
		Offset(uint(f.Offset)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, 0, err
	}

	var rows []SearchRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, err
	}

	countQuery, countArgs, err := r.searchBase(f).
		Select(goqu.COUNT(goqu.DISTINCT(goqu.I("b.id")))).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repo) Detail(ctx context.Context, bookID int64) (*DetailRow, error) {
	const q = `
		SELECT b.id, b.title, b.author, b.isbn, b.category, b.condition, b.created_at,
		       COUNT(c.id) AS total_copies,
		       COUNT(c.id) FILTER (WHERE ` + freeCopy + `) AS available_copies,
		       COALESCE(bs.times_borrowed, 0) AS times_borrowed,
		       bs.average_rating AS average_rating
		FROM books b
		LEFT JOIN copies c ON c.book_id = b.id AND c.removed_at IS NULL
		LEFT JOIN book_statistics bs ON bs.book_id = b.id
		WHERE b.id = $1
		GROUP BY b.id, bs.times_borrowed, bs.average_rating`
	var row DetailRow
	if err := r.db.GetContext(ctx, &row, q, bookID); err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repo) MyBooks(ctx context.Context, ownerID int64) ([]MyBookRow, error) {
	const q = `
		SELECT b.id, b.title, b.author, b.isbn, b.category, b.created_at,
		       COUNT(c.id) AS total_copies,
		       COUNT(c.id) FILTER (WHERE ` + freeCopy + `) AS available_copies
		FROM books b
		JOIN copies c ON c.book_id = b.id
		WHERE c.owner_id = $1 AND c.removed_at IS NULL
		GROUP BY b.id
		ORDER BY b.created_at DESC`
	var out []MyBookRow
	if err := r.db.SelectContext(ctx, &out, q, ownerID); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repo) OwnedCopyCount(ctx context.Context, tx *sqlx.Tx, bookID, ownerID int64) (int64, error) {
	const q = `SELECT COUNT(*) FROM copies WHERE book_id = $1 AND owner_id = $2 AND removed_at IS NULL`
	var n int64
	err := tx.QueryRowContext(ctx, q, bookID, ownerID).Scan(&n)
	return n, err
}

func (r *repo) OwnedCopiesOnLoan(ctx context.Context, tx *sqlx.Tx, bookID, ownerID int64) (int64, error) {
	const q = `
		SELECT COUNT(*)
		FROM loans l
		JOIN copies c ON c.id = l.copy_id
		WHERE c.book_id = $1 AND c.owner_id = $2 AND l.return_at IS NULL`
	var n int64
	err := tx.QueryRowContext(ctx, q, bookID, ownerID).Scan(&n)
	return n, err
}

// RemoveOwnedCopies delists an owner's copies of a book. Copies that were
// never borrowed are deleted outright; copies with loan history are kept
// with removed_at set, because loan rows reference them forever.
func (r *repo) RemoveOwnedCopies(ctx context.Context, tx *sqlx.Tx, bookID, ownerID int64) error {
	const hard = `
		DELETE FROM copies c
		WHERE c.book_id = $1 AND c.owner_id = $2 AND c.removed_at IS NULL
		  AND NOT EXISTS (SELECT 1 FROM loans l WHERE l.copy_id = c.id)`
	if _, err := tx.ExecContext(ctx, hard, bookID, ownerID); err != nil {
		return err
	}
	const soft = `
		UPDATE copies
		SET removed_at = NOW()
		WHERE book_id = $1 AND owner_id = $2 AND removed_at IS NULL`
	_, err := tx.ExecContext(ctx, soft, bookID, ownerID)
	return err
}

// RemainingCopies counts every copy row of the book, delisted ones included.
// A nonzero count blocks DeleteBook: delisted copies still reference the
// book on behalf of their loan history.
func (r *repo) RemainingCopies(ctx context.Context, tx *sqlx.Tx, bookID int64) (int64, error) {
	const q = `SELECT COUNT(*) FROM copies WHERE book_id = $1`
	var n int64
	err := tx.QueryRowContext(ctx, q, bookID).Scan(&n)
	return n, err
}

// DeleteBook removes a book no copy row references anymore, together with
// the waitlist, favorite and statistics rows that point at it.
func (r *repo) DeleteBook(ctx context.Context, tx *sqlx.Tx, bookID int64) error {
	for _, q := range []string{
		`DELETE FROM waitlist WHERE book_id = $1`,
		`DELETE FROM favorites WHERE book_id = $1`,
		`DELETE FROM reviews WHERE book_id = $1`,
		`DELETE FROM book_statistics WHERE book_id = $1`,
		`DELETE FROM books WHERE id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, q, bookID); err != nil {
			return err
		}
	}
	return nil
}

// PopularAvailable is the recommendation fallback: most-borrowed books with
// a free copy that the user neither currently holds nor has reviewed.
func (r *repo) PopularAvailable(ctx context.Context, userID int64, limit int) ([]PopularRow, error) {
	const q = `
		SELECT b.id   AS book_id,
		       b.title, b.author, b.category, b.isbn,
		       COALESCE(bs.average_rating, 0) AS predicted_rating,
		       COALESCE(bs.times_borrowed, 0) AS popularity
		FROM books b
		LEFT JOIN book_statistics bs ON bs.book_id = b.id
		WHERE EXISTS (
			SELECT 1 FROM copies c
			WHERE c.book_id = b.id AND c.removed_at IS NULL AND ` + freeCopy + `
		)
		AND NOT EXISTS (
			SELECT 1 FROM loans l
			JOIN copies c ON c.id = l.copy_id
			WHERE l.borrower_id = $1 AND c.book_id = b.id AND l.return_at IS NULL
		)
		AND NOT EXISTS (
			SELECT 1 FROM reviews rv WHERE rv.reviewer_id = $1 AND rv.book_id = b.id
		)
		ORDER BY popularity DESC, predicted_rating DESC
		LIMIT $2`
	var out []PopularRow
	if err := r.db.SelectContext(ctx, &out, q, userID, limit); err != nil {
		return nil, err
	}
	return out, nil
}
