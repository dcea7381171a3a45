package extraction

// Instruction is sent verbatim with every datasheet image.
const Instruction = `Analiza cuidadosamente esta ficha técnica de una obra de arte en subasta.
Busca el precio (puede aparecer como 'Precio de salida', 'Estimación', 'Salida', 'Remate' o un número con el símbolo €).
Si hay un rango (ej: 1000 - 1500), coge el número más bajo.
Busca también la TÉCNICA o TIPO de obra (ejemplo: óleo sobre lienzo, acuarela, litografía, grabado, técnica mixta, etc.).
Extrae los datos y devuelve ÚNICAMENTE un objeto JSON válido con esta estructura exacta:
{
    "autor": "Nombre del autor",
    "tecnica": "Óleo sobre lienzo",
    "precio_martillo": 1500.0,
    "alto_cm": 100.0,
    "ancho_cm": 80.0
}
Si un dato no aparece, pon 0 para los números o "Desconocido" para el texto. NO incluyas texto extra, solo el JSON.`

// Corrective is appended when the previous reply could not be parsed.
const Corrective = `Tu respuesta anterior no era un objeto JSON válido.
Responde de nuevo SOLO con el objeto JSON, con las claves "autor", "tecnica", "precio_martillo", "alto_cm" y "ancho_cm", sin comentarios ni bloques de código.`

func promptFor(attempt int) string {
	if attempt <= 1 {
		return Instruction
	}
	return Instruction + "\n\n" + Corrective
}
