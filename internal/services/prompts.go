package services

import (
	"fmt"

	"github.com/voice2post/voice2post/internal/models"
)

var stylePrompts = map[models.Style]string{
	models.StyleFacebook: "สร้างโพสต์ Facebook ที่น่าสนใจและดึงดูดการมีส่วนร่วม ใช้ภาษาไทยที่เป็นกันเอง มี emoji ประกอบ และมีการขึ้นบรรทัดให้อ่านง่าย",
	models.StyleIG:       "สร้างแคปชัน Instagram ที่สั้นกระชับ ใช้ emoji และ hashtag ที่เกี่ยวข้อง เหมาะสำหรับการโพสต์รูปภาพ",
	models.StyleTwitter:  "สร้างทวีตที่กระชับไม่เกิน 280 ตัวอักษร เน้นข้อความที่ชัดเจน มีประเด็น และใช้ hashtag ที่เกี่ยวข้อง",
}

const postPromptTemplate = `
คำแนะนำ: สรุปเนื้อหาจากข้อความที่ถอดเสียง แล้วแปลงเป็นโพสต์แนว %s

%s

ข้อความที่ถอดเสียง: %q

กรุณาตอบในรูปแบบ JSON ดังนี้:
{
  "summary": "สรุปเนื้อหาหลักที่สำคัญ",
  "post": "โพสต์ที่เขียนแล้วพร้อมใช้"
}
`

func BuildPostPrompt(transcript string, style models.Style) string {
	instructions, ok := stylePrompts[style]
	if !ok {
		instructions = stylePrompts[models.StyleFacebook]
	}
	return fmt.Sprintf(postPromptTemplate, style, instructions, transcript)
}
