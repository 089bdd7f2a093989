package dispatch

// routes maps a payload type to its click target. Adding a notification
// category means adding one entry here.
var routes = map[string]func(Data) string{
	TypeComment: func(d Data) string {
		if d.ArticleID == "" {
			return "/"
		}
		return "/article/" + d.ArticleID + "#comments"
	},
	TypeLike: func(d Data) string {
		if d.ArticleID == "" {
			return "/"
		}
		return "/article/" + d.ArticleID
	},
	TypeFollow: func(d Data) string {
		if d.UserID == "" {
			return "/"
		}
		return "/profile/" + d.UserID
	},
	TypeArticlePublished: func(d Data) string {
		if d.ArticleID == "" {
			return "/articles"
		}
		return "/article/" + d.ArticleID
	},
	TypeSystem: func(Data) string {
		return "/dashboard"
	},
}

// TargetURL computes where a notification click navigates. An explicit
// payload URL wins; unknown types land on the site root.
func TargetURL(d Data) string {
	if d.URL != "" {
		return d.URL
	}
	if route, ok := routes[d.Type]; ok {
		return route(d)
	}
	return "/"
}
