// Package source реализует коллаборатора-растеризатора: постраничный
// документ превращается в набор изображений слайдов.
package source

import (
	"context"
	"image"

	"github.com/gen2brain/go-fitz"
	"golang.org/x/sync/errgroup"
)

// OversampleDPI — фиксированное 3x-передискретизирование страниц
// (72 dpi * 3): запас по качеству для дальнейшего зума элементов.
const OversampleDPI = 216

type Source interface {
	PageCount() int
	GetPageDimensions(index int) (width, height float64, err error)
	RenderPage(index int) (image.Image, error)
	Close() error
}

type FitzPDFSource struct {
	doc  *fitz.Document
	path string
}

func NewFitzPDFSource(path string) (*FitzPDFSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	return &FitzPDFSource{doc: doc, path: path}, nil
}

func (f *FitzPDFSource) PageCount() int {
	return f.doc.NumPage()
}

func (f *FitzPDFSource) GetPageDimensions(index int) (float64, float64, error) {
	rect, err := f.doc.Bound(index)
	if err != nil {
		return 0, 0, err
	}
	return float64(rect.Dx()), float64(rect.Dy()), nil
}

func (f *FitzPDFSource) RenderPage(index int) (image.Image, error) {
	// Для параллельной работы открываем отдельный документ,
	// чтобы не блокировать воркеров на общем дескрипторе.
	workerDoc, err := fitz.New(f.path)
	if err != nil {
		return nil, err
	}
	defer workerDoc.Close()
	return workerDoc.ImageDPI(index, OversampleDPI)
}

func (f *FitzPDFSource) Close() error {
	return f.doc.Close()
}

// RenderAll растеризует все страницы с ограниченным параллелизмом и
// возвращает их в исходном порядке.
func RenderAll(ctx context.Context, src Source, workers int) ([]image.Image, error) {
	n := src.PageCount()
	images := make([]image.Image, n)

	g, gctx := errgroup.WithContext(ctx)
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			img, err := src.RenderPage(i)
			if err != nil {
				return err
			}
			images[i] = img
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return images, nil
}
