package spotifyapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go"
	"github.com/goccy/go-json"
	"github.com/schollz/progressbar/v3"
	"github.com/zmb3/spotify/v2"

	"github.com/ademuri/spotify-report/internal/export"
	"github.com/ademuri/spotify-report/internal/logging"
)

const pageSize = 100

// FetchPlaylists retrieves every item of each playlist, in the order given.
func (f *Fetcher) FetchPlaylists(ctx context.Context, ids []string) (export.PlaylistFile, error) {
	var out export.PlaylistFile
	for _, raw := range ids {
		id, err := ParsePlaylistID(raw)
		if err != nil {
			return export.PlaylistFile{}, err
		}
		p, err := f.fetchPlaylist(ctx, id)
		if err != nil {
			return export.PlaylistFile{}, fmt.Errorf("fetching playlist %s: %w", id, err)
		}
		logging.Info().Str("playlist", p.Name).Int("items", len(p.Items)).Msg("fetched playlist")
		out.Playlists = append(out.Playlists, p)
	}
	return out, nil
}

func (f *Fetcher) fetchPlaylist(ctx context.Context, id spotify.ID) (export.Playlist, error) {
	var meta *spotify.FullPlaylist
	err := f.do(ctx, func() error {
		var err error
		meta, err = f.client.GetPlaylist(ctx, id, spotify.Fields("name,description,followers(total)"))
		return err
	})
	if err != nil {
		return export.Playlist{}, fmt.Errorf("getting playlist: %w", err)
	}
	p := playlistMeta(meta)

	var bar *progressbar.ProgressBar
	for offset := 0; ; offset += pageSize {
		var page *spotify.PlaylistItemPage
		err := f.do(ctx, func() error {
			var err error
			page, err = f.client.GetPlaylistItems(ctx, id, spotify.Limit(pageSize), spotify.Offset(offset))
			return err
		})
		if err != nil {
			return export.Playlist{}, fmt.Errorf("getting items at offset %d: %w", offset, err)
		}
		if f.progress && bar == nil {
			bar = progressbar.Default(int64(page.Total), p.Name)
		}
		for _, item := range page.Items {
			p.Items = append(p.Items, convertItem(item))
		}
		if bar != nil {
			bar.Add(len(page.Items))
		}
		if len(page.Items) < pageSize || offset+len(page.Items) >= int(page.Total) {
			break
		}
	}
	if bar != nil {
		bar.Finish()
	}
	return p, nil
}

// do waits for the rate limiter, then runs call with retries on transient
// API errors.
func (f *Fetcher) do(ctx context.Context, call func() error) error {
	return retry.Do(
		func() error {
			if err := f.limiter.Wait(ctx); err != nil {
				return err
			}
			return call()
		},
		retry.Attempts(f.attempts),
		retry.Delay(time.Second),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			if ctx.Err() != nil {
				return false
			}
			return retryable(err)
		}),
		retry.OnRetry(func(n uint, err error) {
			logging.Warn().Err(err).Uint("attempt", n+1).Msg("spotify request failed, retrying")
		}),
	)
}

// retryable reports whether err is worth another attempt. Client errors
// other than rate limiting are not.
func retryable(err error) bool {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func playlistMeta(meta *spotify.FullPlaylist) export.Playlist {
	p := export.Playlist{
		Name:              meta.Name,
		NumberOfFollowers: int(meta.Followers.Count),
	}
	if meta.Description != "" {
		description := meta.Description
		p.Description = &description
	}
	return p
}

// convertItem maps an API playlist item to the export's item shape. Items
// that are not music tracks keep a small placeholder so counts still match
// the playlist.
func convertItem(item spotify.PlaylistItem) export.PlaylistItem {
	out := export.PlaylistItem{
		AddedDate: item.AddedAt,
		AddedBy:   item.AddedBy.ID,
	}
	track := item.Track.Track
	switch {
	case item.Track.Episode != nil:
		out.Episode = placeholder(item.Track.Episode.Name, "")
	case track == nil:
		out.LocalTrack = placeholder("", "")
	case item.IsLocal || len(track.Artists) == 0 || track.Name == "":
		out.LocalTrack = placeholder(track.Name, string(track.URI))
	default:
		out.Track = &export.PlaylistTrack{
			TrackName:  track.Name,
			ArtistName: track.Artists[0].Name,
			AlbumName:  track.Album.Name,
			TrackURI:   string(track.URI),
		}
		out.ReleaseDate = track.Album.ReleaseDate
	}
	return out
}

func placeholder(name, uri string) json.RawMessage {
	data, err := json.Marshal(map[string]string{"name": name, "uri": uri})
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return data
}
