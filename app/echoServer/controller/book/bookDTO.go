package book

type AddBookReq struct {
	Title     string  `json:"title" validate:"required"`
	Author    *string `json:"author"`
	Category  *string `json:"category"`
	ISBN      *string `json:"isbn"`
	Condition *string `json:"condition"`
}

type AddCopiesReq struct {
	Count int `json:"count" validate:"required,gt=0"`
}
