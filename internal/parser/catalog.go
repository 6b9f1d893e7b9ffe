package parser

import (
	"encoding/csv"
	"io"
	"strings"

	"albumrun/internal/aggregate"
)

// canonical header mapping for the container details export
var catalogHeaderAliases = map[string]string{
	"container type":        "type",
	"container description": "description",
	"artists":               "artists",
	"genres":                "genres",
}

// Catalog maps normalized album names to artist and genre metadata.
// First occurrence wins, in file order: later rows never overwrite.
type Catalog struct {
	Artists map[string]string
	Genres  map[string]string
}

func emptyCatalog() *Catalog {
	return &Catalog{
		Artists: make(map[string]string),
		Genres:  make(map[string]string),
	}
}

// ReadCatalog parses a container details export into a Catalog. Only rows of
// container type ALBUM contribute. Descriptions in "Artist - Album" form are
// split on the first " - "; otherwise the description is taken as the album
// name and the Artists column as the artist.
func ReadCatalog(r io.Reader) (*Catalog, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	rawHeaders, err := cr.Read()
	if err != nil {
		return nil, err
	}

	cols := make(map[string]int)
	for i, h := range rawHeaders {
		if canonical, ok := catalogHeaderAliases[normalizeHeader(h)]; ok {
			if _, seen := cols[canonical]; !seen {
				cols[canonical] = i
			}
		}
	}
	if len(cols) == 0 {
		return nil, ErrNoColumns
	}

	get := func(record []string, canonical string) string {
		i, ok := cols[canonical]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	cat := emptyCatalog()

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		if get(record, "type") != "ALBUM" {
			continue
		}

		desc := get(record, "description")
		artistsField := get(record, "artists")
		genresField := get(record, "genres")

		var album, artist string
		if before, after, found := strings.Cut(desc, " - "); found {
			artist = strings.TrimSpace(before)
			album = aggregate.NormalizeAlbum(after)
		} else if desc != "" {
			album = aggregate.NormalizeAlbum(desc)
			artist = artistsField
		}
		if album == "" {
			continue
		}

		if artist != "" {
			if _, ok := cat.Artists[album]; !ok {
				cat.Artists[album] = artist
			}
		}
		if cleaned := CleanGenres(genresField); cleaned != "" {
			if _, ok := cat.Genres[album]; !ok {
				cat.Genres[album] = cleaned
			}
		}
	}

	return cat, nil
}

// CleanGenres drops the generic "Music" token and rejoins the rest.
func CleanGenres(genres string) string {
	if genres == "" {
		return ""
	}
	var kept []string
	for _, g := range strings.Split(genres, ",") {
		g = strings.TrimSpace(g)
		if g == "" || strings.EqualFold(g, "music") {
			continue
		}
		kept = append(kept, g)
	}
	return strings.Join(kept, ", ")
}
