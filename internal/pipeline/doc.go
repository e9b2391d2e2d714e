// Package pipeline определяет контракт AI-конвейера.
//
// Конвейер получает снимок run'а (Input), выполняет его и возвращает
// итоговый Output. Промежуточные события — прогресс, состояния узлов,
// созданные узлы и рёбра, шаги рассуждений, чанки текста — отдаются
// через колбэки Events по мере выполнения.
//
// Реализации:
//   - HTTPExecutor / HTTPRetriever — внешний HTTP-сервис конвейера
//
// Воркер предпочитает потоковый путь (Streamer), если реализация его
// поддерживает, с откатом на Execute при ошибке до первого события.
package pipeline
