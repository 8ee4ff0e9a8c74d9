package slideshow

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var ErrNoImages = errors.New("slideshow: no images found in folder")

// ListImages returns the .jpg and .png files in folder, sorted by name.
func ListImages(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("read image folder: %w", err)
	}

	images := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".png":
			images = append(images, filepath.Join(folder, entry.Name()))
		}
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoImages, folder)
	}
	sort.Strings(images)

	return images, nil
}
