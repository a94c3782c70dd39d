package store

import (
	"github.com/mdouchement/creativespace/internal/model"
)

// SeedRecords returns the sample media inserted on first run.
func SeedRecords() []*model.MediaRecord {
	return []*model.MediaRecord{
		{
			Base:         model.Base{ID: "seed-1"},
			Kind:         model.KindImage,
			RemoteURL:    "https://images.unsplash.com/photo-1493246507139-91e8fad9978e?ixlib=rb-4.0.3&auto=format&fit=crop&w=1000&q=80",
			Name:         "Mountain Landscape",
			Title:        "Alpine Dreams",
			Category:     "Photography",
			Likes:        124,
			Views:        1540,
			AuthorName:   "Sarah Jenkins",
			AuthorAvatar: model.DefaultAvatar("Sarah"),
			UserID:       "sarah@example.com",
		},
		{
			Base:         model.Base{ID: "seed-2"},
			Kind:         model.KindImage,
			RemoteURL:    "https://images.unsplash.com/photo-1522202176988-66273c2fd55f?ixlib=rb-4.0.3&auto=format&fit=crop&w=1000&q=80",
			Name:         "Student Life",
			Title:        "Study Session",
			Category:     "Lifestyle",
			Likes:        89,
			Views:        890,
			AuthorName:   "David Lee",
			AuthorAvatar: model.DefaultAvatar("David"),
			UserID:       "david@example.com",
		},
		{
			Base:         model.Base{ID: "seed-3"},
			Kind:         model.KindImage,
			RemoteURL:    "https://images.unsplash.com/photo-1550745165-9bc0b252726f?ixlib=rb-4.0.3&auto=format&fit=crop&w=1000&q=80",
			Name:         "Tech Setup",
			Title:        "Workspace Goals",
			Category:     "Tech",
			Likes:        432,
			Views:        5200,
			AuthorName:   "Alex Tech",
			AuthorAvatar: model.DefaultAvatar("Alex"),
			UserID:       "alex@example.com",
		},
		{
			Base:         model.Base{ID: "seed-4"},
			Kind:         model.KindImage,
			RemoteURL:    "https://images.unsplash.com/photo-1618005182384-a83a8bd57fbe?ixlib=rb-4.0.3&auto=format&fit=crop&w=1000&q=80",
			Name:         "Abstract Art",
			Title:        "Liquid Colors",
			Category:     "Art",
			Likes:        215,
			Views:        3100,
			LikedByUser:  true,
			AuthorName:   "Creative Studio",
			AuthorAvatar: model.DefaultAvatar("Studio"),
			UserID:       "studio@example.com",
		},
	}
}
