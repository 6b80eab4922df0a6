package zaim

// Genre is a Zaim spending genre (sub-category).
type Genre struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Sort          int    `json:"sort"`
	Active        int    `json:"active"`
	CategoryID    int    `json:"category_id"`
	ParentGenreID int    `json:"parent_genre_id"`
	Modified      string `json:"modified,omitempty"`
}

// Category is a Zaim top-level category.
type Category struct {
	ID               int    `json:"id"`
	Name             string `json:"name"`
	Mode             string `json:"mode"`
	Sort             int    `json:"sort"`
	Active           int    `json:"active"`
	ParentCategoryID int    `json:"parent_category_id"`
	Modified         string `json:"modified,omitempty"`
}

// Account is a Zaim wallet or bank account.
type Account struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	Sort            int    `json:"sort"`
	Active          int    `json:"active"`
	LocalID         int    `json:"local_id"`
	WebsiteID       int    `json:"website_id"`
	ParentAccountID int    `json:"parent_account_id"`
	Modified        string `json:"modified,omitempty"`
}

// User is the authenticated Zaim user.
type User struct {
	ID              int    `json:"id"`
	Login           string `json:"login"`
	Name            string `json:"name"`
	InputCount      int    `json:"input_count"`
	DayCount        int    `json:"day_count"`
	RepeatCount     int    `json:"repeat_count"`
	Day             int    `json:"day"`
	Week            int    `json:"week"`
	Month           int    `json:"month"`
	CurrencyCode    string `json:"currency_code"`
	ProfileImageURL string `json:"profile_image_url"`
	CoverImageURL   string `json:"cover_image_url"`
	ProfileModified string `json:"profile_modified"`
}

// PaymentResult is the relevant part of the response to a payment creation.
type PaymentResult struct {
	Money struct {
		ID       int64  `json:"id"`
		PlaceUID string `json:"place_uid"`
		Modified string `json:"modified"`
	} `json:"money"`
	Requested int64 `json:"requested"`
}

type genresResponse struct {
	Genres []Genre `json:"genres"`
}

type categoriesResponse struct {
	Categories []Category `json:"categories"`
}

type accountsResponse struct {
	Accounts []Account `json:"accounts"`
}

type verifyResponse struct {
	Me User `json:"me"`
}
