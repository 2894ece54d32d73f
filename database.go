// Copyright 2018 Fabian Wenzelmann
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package mosaicify

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// FSImageDB implements ImageStorage. It uses images stored on the filesystem
// and opens them on demand.
// The paths are stored relative to a Root directory, use GetPath to get the
// full path of an image. The id of an image is its position in Paths.
type FSImageDB struct {
	Root  string
	Paths []string
}

// NewFSImageDB returns an empty database for the given root directory.
func NewFSImageDB(root string) *FSImageDB {
	return &FSImageDB{Root: root, Paths: nil}
}

// GetPath returns the path of the image with the given id.
func (db *FSImageDB) GetPath(id ImageID) string {
	return filepath.Join(db.Root, db.Paths[id])
}

// NumImages returns the number of images in the database.
func (db *FSImageDB) NumImages() ImageID {
	return ImageID(len(db.Paths))
}

func (db *FSImageDB) checkID(id ImageID) error {
	if id < 0 || id >= db.NumImages() {
		return fmt.Errorf("Invalid image id: Not associated with an image %d", id)
	}
	return nil
}

// LoadImage opens and decodes the image, the EXIF orientation of jpg files is
// applied.
func (db *FSImageDB) LoadImage(id ImageID) (image.Image, error) {
	if err := db.checkID(id); err != nil {
		return nil, err
	}
	return imaging.Open(db.GetPath(id), imaging.AutoOrientation(true))
}

// LoadConfig decodes only the config of the image.
func (db *FSImageDB) LoadConfig(id ImageID) (image.Config, error) {
	if err := db.checkID(id); err != nil {
		return image.Config{}, err
	}
	r, openErr := os.Open(db.GetPath(id))
	if openErr != nil {
		return image.Config{}, openErr
	}
	defer r.Close()
	config, _, decodeErr := image.DecodeConfig(r)
	return config, decodeErr
}

// GenFSDatabase creates a database with all files in root that are accepted
// by filter (nil means AllSupported). If recursive is true subdirectories are
// searched as well.
//
// The paths are sorted, thus the ids of images are the same for each call on
// the same directory.
func GenFSDatabase(root string, recursive bool, filter SupportedImageFunc) (*FSImageDB, error) {
	root, absErr := filepath.Abs(root)
	if absErr != nil {
		return nil, absErr
	}
	if filter == nil {
		filter = AllSupported
	}
	var result *FSImageDB
	var err error
	if recursive {
		result, err = genFSDBRecursive(root, filter)
	} else {
		result, err = genFSDBNonRecursive(root, filter)
	}
	if err != nil {
		return nil, err
	}
	sort.Strings(result.Paths)
	return result, nil
}

func genFSDBRecursive(root string, filter SupportedImageFunc) (*FSImageDB, error) {
	result := NewFSImageDB(root)
	walkFunc := func(path string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case !d.IsDir() && filter(filepath.Ext(path)):
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return relErr
			}
			result.Paths = append(result.Paths, rel)
			return nil
		default:
			return nil
		}
	}
	if err := filepath.WalkDir(root, walkFunc); err != nil {
		return nil, err
	}
	return result, nil
}

func genFSDBNonRecursive(root string, filter SupportedImageFunc) (*FSImageDB, error) {
	result := NewFSImageDB(root)
	files, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		if !file.IsDir() && filter(filepath.Ext(file.Name())) {
			result.Paths = append(result.Paths, file.Name())
		}
	}
	return result, nil
}
