package jikan

type listResponse struct {
	Data []item `json:"data"`
}

type detailResponse struct {
	Data *item `json:"data"`
}

type named struct {
	Name string `json:"name"`
}

type dateRange struct {
	Prop struct {
		From struct {
			Year *int `json:"year"`
		} `json:"from"`
	} `json:"prop"`
}

type item struct {
	MalID         int       `json:"mal_id"`
	Title         string    `json:"title"`
	TitleEnglish  string    `json:"title_english"`
	TitleJapanese string    `json:"title_japanese"`
	Status        string    `json:"status"`
	Synopsis      string    `json:"synopsis"`
	Score         *float64  `json:"score"`
	Year          *int      `json:"year"`
	Episodes      *int      `json:"episodes"`
	Chapters      *int      `json:"chapters"`
	Genres        []named   `json:"genres"`
	Studios       []named   `json:"studios"`
	Authors       []named   `json:"authors"`
	Aired         dateRange `json:"aired"`
	Published     dateRange `json:"published"`
	Images        struct {
		JPG struct {
			ImageURL      string `json:"image_url"`
			LargeImageURL string `json:"large_image_url"`
		} `json:"jpg"`
	} `json:"images"`
}

func names(values []named) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value.Name != "" {
			out = append(out, value.Name)
		}
	}
	return out
}
