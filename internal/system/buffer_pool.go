package system

import (
	"image"
	"sync"
)

// Пул временных image.RGBA для снижения нагрузки на Garbage Collector:
// композитор запрашивает буферы под анимированные элементы каждый кадр,
// причем их размер меняется от кадра к кадру (zoomIn). Поэтому пул
// хранит сырые пиксельные буферы и перекраивает их под нужный
// прямоугольник, переиспользуя любой достаточно емкий.
var pixPool = sync.Pool{}

// GetImage возвращает *image.RGBA нужного размера, по возможности
// поверх переиспользованного буфера. Содержимое не обнулено: вызывающий
// обязан полностью перерисовать буфер.
func GetImage(rect image.Rectangle) *image.RGBA {
	need := rect.Dx() * rect.Dy() * 4
	if v := pixPool.Get(); v != nil {
		buf := v.([]byte)
		if cap(buf) >= need {
			return &image.RGBA{
				Pix:    buf[:need],
				Stride: rect.Dx() * 4,
				Rect:   rect,
			}
		}
		// Слишком маленький — возвращаем и выделяем заново.
		pixPool.Put(v)
	}
	return image.NewRGBA(rect)
}

// PutImage возвращает пиксельный буфер изображения в пул.
func PutImage(img *image.RGBA) {
	if img == nil || img.Pix == nil {
		return
	}
	pixPool.Put(img.Pix[:0])
}
